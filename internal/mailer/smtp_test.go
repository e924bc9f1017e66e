package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHeader(t *testing.T) {
	named := NewSMTPSender(SMTPConfig{
		From:     "billett@nordscene.no",
		FromName: "Nordscene Billettluka",
	})
	assert.Equal(t, "Nordscene Billettluka <billett@nordscene.no>", named.fromHeader())

	bare := NewSMTPSender(SMTPConfig{From: "billett@nordscene.no"})
	assert.Equal(t, "billett@nordscene.no", bare.fromHeader())
}
