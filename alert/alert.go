// Operator alerting. The migrator account runs dry by design (it is
// topped up manually), so the service mails out when quota or balance
// drops below thresholds and when an allocation pass cannot serve
// anyone.

package alert

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	logger "github.com/sirupsen/logrus"
)

type Alerter interface {
	// MigratorLow fires when the migrator's remaining quota or balance
	// crosses the configured floor.
	MigratorLow(quota int, balance *big.Int)

	// AllocationExhausted fires when an allocation pass accepted zero
	// candidates despite pending requests. kind is "migration" or
	// "bonus".
	AllocationExhausted(kind string, pending int)
}

type Config struct {
	SendGridAPIKey string
	FromEmail      string
	ToEmail        string

	// alarm thresholds for the migrator account
	MinAllowedMigrations int
	MinBalance           *big.Int
}

// EmailAlerter mails through SendGrid. Each alarm latches after the
// first send so a low account does not generate a mail per polling
// cycle; the latch resets on process restart, which matches how often
// anyone refuels the account.
type EmailAlerter struct {
	cfg    *Config
	client *sendgrid.Client

	mu             sync.Mutex
	migratorRang   bool
	exhaustionRang map[string]bool
}

func NewEmailAlerter(cfg *Config) *EmailAlerter {
	return &EmailAlerter{
		cfg:            cfg,
		client:         sendgrid.NewSendClient(cfg.SendGridAPIKey),
		exhaustionRang: map[string]bool{},
	}
}

func (a *EmailAlerter) MigratorLow(quota int, balance *big.Int) {
	if quota >= a.cfg.MinAllowedMigrations && balance.Cmp(a.cfg.MinBalance) >= 0 {
		return
	}

	a.mu.Lock()
	rang := a.migratorRang
	a.migratorRang = true
	a.mu.Unlock()
	if rang {
		return
	}

	subject := "Migrator needs refuelling"
	body := fmt.Sprintf(
		"The migrator is running low: allowed migrations = %d, balance = %s. Top up the account and raise the allowed count.",
		quota, balance.String(),
	)
	a.send(subject, body)
}

func (a *EmailAlerter) AllocationExhausted(kind string, pending int) {
	a.mu.Lock()
	rang := a.exhaustionRang[kind]
	a.exhaustionRang[kind] = true
	a.mu.Unlock()
	if rang {
		return
	}

	subject := fmt.Sprintf("No %s requests could be served", kind)
	body := fmt.Sprintf(
		"An allocation pass accepted zero of %d pending %s requests. The balance or the allowed count is insufficient; requests stay pending until the migrator is refuelled.",
		pending, kind,
	)
	a.send(subject, body)
}

func (a *EmailAlerter) send(subject, body string) {
	from := mail.NewEmail("migration service", a.cfg.FromEmail)
	to := mail.NewEmail("migration operators", a.cfg.ToEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	resp, err := a.client.Send(message)
	if err != nil {
		logger.WithError(err).Error("failed to send alert email")
		return
	}
	logger.WithFields(logger.Fields{
		"subject": subject,
		"status":  resp.StatusCode,
	}).Info("alert email sent")
}

// NopAlerter records calls and sends nothing. Used in tests and when no
// SendGrid key is configured.
type NopAlerter struct {
	mu              sync.Mutex
	MigratorCalls   int
	ExhaustionCalls []string
}

func (a *NopAlerter) MigratorLow(quota int, balance *big.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.MigratorCalls++
}

func (a *NopAlerter) AllocationExhausted(kind string, pending int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ExhaustionCalls = append(a.ExhaustionCalls, kind)
}
