package notification

// Notification kinds, mirrored by the front-end toast styles.
const (
	KindInfo    = "info"
	KindSuccess = "success"
	KindError   = "error"
	KindWarning = "warning"
)

// Notification is a transient event pushed to connected clients. It is
// delivered best-effort at broadcast time; nothing is replayed to clients
// that connect later. Persistent is a hint to keep the toast visible, not a
// server-side delivery guarantee.
type Notification struct {
	Kind       string `json:"kind" msgpack:"kind"`
	Message    string `json:"message" msgpack:"message"`
	Persistent bool   `json:"persistent" msgpack:"persistent"`
}

// envelope is the wire shape pushed over the WebSocket.
type envelope struct {
	Type             string `json:"type"`
	NotificationType string `json:"notification_type"`
	Message          string `json:"message"`
	Persistent       bool   `json:"persistent"`
}

func (n Notification) envelope() envelope {
	return envelope{
		Type:             "notification",
		NotificationType: n.Kind,
		Message:          n.Message,
		Persistent:       n.Persistent,
	}
}

func Info(message string) Notification {
	return Notification{Kind: KindInfo, Message: message}
}

func Success(message string, persistent bool) Notification {
	return Notification{Kind: KindSuccess, Message: message, Persistent: persistent}
}

func Error(message string, persistent bool) Notification {
	return Notification{Kind: KindError, Message: message, Persistent: persistent}
}

func Warning(message string) Notification {
	return Notification{Kind: KindWarning, Message: message}
}
