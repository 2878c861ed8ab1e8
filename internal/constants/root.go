package constants

import "time"

// InvitationStatus represents the lifecycle state of a plan invitation
type InvitationStatus string

const (
	AppName           = "habitpact"
	DefaultConfigPath = "~/.config/habitpact/config.yaml"
	DefaultDBPath     = "~/.config/habitpact/habitpact.db"
	EnvPrefix         = "HABITPACT_"
	Version           = "v0.3.0"

	// DefaultKeyringUser is the keyring account holding the PostgreSQL connection string
	DefaultKeyringUser = "database-connection"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Invitation statuses. Accepted and declined are terminal.
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"

	// Rollover constants
	RolloverMaxAttempts    = 3
	RolloverRetryDelay     = 2 * time.Second
	DefaultRolloverWorkers = 4
	DaysPerWeek            = 7

	// Server constants
	DefaultServerAddr     = ":8080"
	DefaultRequestTimeout = 10 * time.Second

	// Notify constants
	NotifyTimeout = 5 * time.Second
)
