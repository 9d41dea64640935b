package gate

// Messages holds the fixed texts the gate replies with.
type Messages struct {
	Welcome       string
	JoinPrompt    string
	JoinButton    string
	RecheckButton string
	Apology       string
}

// DefaultMessages returns the stock Persian texts.
func DefaultMessages() Messages {
	return Messages{
		Welcome:       "🎉 خوش آمدید! شما عضو کانال هستید.\n\nبزودی منوی اصلی در اینجا نمایش داده خواهد شد.",
		JoinPrompt:    "👋 برای استفاده از امکانات ربات، لطفاً ابتدا در کانال ما عضو شوید و سپس دکمه \"بررسی مجدد\" را بزنید.",
		JoinButton:    "✅ عضویت در کانال",
		RecheckButton: "🔄 بررسی مجدد عضویت",
		Apology:       "خطایی در بررسی عضویت رخ داد. لطفاً لحظاتی دیگر دوباره تلاش کنید.",
	}
}

// withDefaults fills empty fields from DefaultMessages.
func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	if m.Welcome == "" {
		m.Welcome = d.Welcome
	}
	if m.JoinPrompt == "" {
		m.JoinPrompt = d.JoinPrompt
	}
	if m.JoinButton == "" {
		m.JoinButton = d.JoinButton
	}
	if m.RecheckButton == "" {
		m.RecheckButton = d.RecheckButton
	}
	if m.Apology == "" {
		m.Apology = d.Apology
	}
	return m
}
