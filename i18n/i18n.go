// Package i18n holds the widget's localized UI strings.
package i18n

// Locale selects a translation table.
type Locale string

const (
	LocalePT Locale = "pt"
	LocaleEN Locale = "en"
	LocaleES Locale = "es"
)

// PreChatStrings labels the pre-chat form.
type PreChatStrings struct {
	Title            string
	Description      string
	Name             string
	NamePlaceholder  string
	Email            string
	EmailPlaceholder string
	Start            string
	Loading          string
	PrivacyPrefix    string
	PrivacyLink      string
}

// ChatStrings labels the composer and the active chat surface.
type ChatStrings struct {
	Placeholder  string
	Closed       string
	Reopen       string
	AttachFile   string
	Uploading    string
	FileTooLarge string
	Download     string
}

// ConversationStrings labels the conversation list.
type ConversationStrings struct {
	Title           string
	NewConversation string
	Empty           string
	Open            string
	Closed          string
	NoMessages      string
}

// Translations is one locale's complete string table.
type Translations struct {
	PreChat       PreChatStrings
	Chat          ChatStrings
	Conversations ConversationStrings
}

var pt = Translations{
	PreChat: PreChatStrings{
		Title:            "Iniciar conversa",
		Description:      "Preencha os dados abaixo para iniciar o atendimento.",
		Name:             "Nome",
		NamePlaceholder:  "Seu nome",
		Email:            "E-mail",
		EmailPlaceholder: "seu@email.com",
		Start:            "Iniciar conversa",
		Loading:          "Iniciando...",
		PrivacyPrefix:    "Ao enviar, você concorda com nossa",
		PrivacyLink:      "Política de Privacidade",
	},
	Chat: ChatStrings{
		Placeholder:  "Digite uma mensagem...",
		Closed:       "Esta conversa foi encerrada.",
		Reopen:       "Reabrir conversa",
		AttachFile:   "Anexar arquivo",
		Uploading:    "Enviando...",
		FileTooLarge: "Arquivo muito grande (máx. 25MB)",
		Download:     "Baixar",
	},
	Conversations: ConversationStrings{
		Title:           "Atendimento",
		NewConversation: "Nova conversa",
		Empty:           "Nenhuma conversa encontrada.",
		Open:            "Aberta",
		Closed:          "Fechada",
		NoMessages:      "Nenhuma mensagem ainda",
	},
}

var en = Translations{
	PreChat: PreChatStrings{
		Title:            "Start a conversation",
		Description:      "Fill in the details below to start chatting.",
		Name:             "Name",
		NamePlaceholder:  "Your name",
		Email:            "Email",
		EmailPlaceholder: "you@email.com",
		Start:            "Start conversation",
		Loading:          "Starting...",
		PrivacyPrefix:    "By sending, you agree to our",
		PrivacyLink:      "Privacy Policy",
	},
	Chat: ChatStrings{
		Placeholder:  "Type a message...",
		Closed:       "This conversation has been closed.",
		Reopen:       "Reopen conversation",
		AttachFile:   "Attach file",
		Uploading:    "Uploading...",
		FileTooLarge: "File too large (max 25MB)",
		Download:     "Download",
	},
	Conversations: ConversationStrings{
		Title:           "Support",
		NewConversation: "New conversation",
		Empty:           "No conversations found.",
		Open:            "Open",
		Closed:          "Closed",
		NoMessages:      "No messages yet",
	},
}

var es = Translations{
	PreChat: PreChatStrings{
		Title:            "Iniciar conversación",
		Description:      "Complete los datos a continuación para iniciar la atención.",
		Name:             "Nombre",
		NamePlaceholder:  "Tu nombre",
		Email:            "Correo electrónico",
		EmailPlaceholder: "tu@email.com",
		Start:            "Iniciar conversación",
		Loading:          "Iniciando...",
		PrivacyPrefix:    "Al enviar, aceptas nuestra",
		PrivacyLink:      "Política de Privacidad",
	},
	Chat: ChatStrings{
		Placeholder:  "Escribe un mensaje...",
		Closed:       "Esta conversación ha sido cerrada.",
		Reopen:       "Reabrir conversación",
		AttachFile:   "Adjuntar archivo",
		Uploading:    "Subiendo...",
		FileTooLarge: "Archivo demasiado grande (máx. 25MB)",
		Download:     "Descargar",
	},
	Conversations: ConversationStrings{
		Title:           "Atención",
		NewConversation: "Nueva conversación",
		Empty:           "No se encontraron conversaciones.",
		Open:            "Abierta",
		Closed:          "Cerrada",
		NoMessages:      "Sin mensajes aún",
	},
}

var locales = map[Locale]Translations{
	LocalePT: pt,
	LocaleEN: en,
	LocaleES: es,
}

// Get returns the translation table for a locale, falling back to pt.
func Get(locale Locale) Translations {
	if t, ok := locales[locale]; ok {
		return t
	}
	return pt
}
