package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/teamwear/storefront/internal/order"
)

// SMTPGateway emails the order confirmation to the shop address through a
// plain SMTP relay.
type SMTPGateway struct {
	addr string // host:port of the relay
	auth smtp.Auth
	from string
	to   string
}

var _ Gateway = (*SMTPGateway)(nil)

// NewSMTPGateway builds a gateway for the given relay. auth may be nil for
// an unauthenticated relay (e.g. a local forwarder).
func NewSMTPGateway(addr string, auth smtp.Auth, from, to string) *SMTPGateway {
	return &SMTPGateway{addr: addr, auth: auth, from: from, to: to}
}

func (g *SMTPGateway) OrderPaid(ctx context.Context, o *order.Order) error {
	subject := fmt.Sprintf("New Order %s", o.ID)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", g.from)
	fmt.Fprintf(&msg, "To: %s\r\n", g.to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(renderOrder(o))

	if err := smtp.SendMail(g.addr, g.auth, g.from, []string{g.to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: send mail for order %s: %w", o.ID, err)
	}
	return nil
}
