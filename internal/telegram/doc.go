// Package telegram is a thin client for the subset of the Telegram Bot API
// joingate needs: membership lookups, message delivery, and webhook
// registration.
//
// No external Telegram library is used. Requests are JSON POSTs built with
// net/http + encoding/json; every call is traced and counted.
package telegram
