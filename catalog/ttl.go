package catalog

import "time"

// TTL tiers used by the operation table.
const (
	NoCache  time.Duration = 0
	Short                  = 30 * time.Second
	Medium                 = 5 * time.Minute
	Long                   = 15 * time.Minute
	Extended               = 30 * time.Minute
	Static                 = time.Hour
)
