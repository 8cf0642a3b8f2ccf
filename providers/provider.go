package providers

import "context"

// Attachment ist ein Dateianhang einer ausgehenden Nachricht.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message ist eine ausgehende E-Mail mit Klartext-Body.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer ist das Interface, das jeder Versand-Provider (z.B. SMTP) implementieren muss.
type Mailer interface {
	// Send stellt die Nachricht zu oder gibt den Transportfehler zurück.
	Send(ctx context.Context, msg Message) error

	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "smtp").
	Name() string
}
