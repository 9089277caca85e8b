package schema

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Named interval aliases accepted without cron parsing. @once is not a
// cron descriptor at all; the orchestrator treats it as run-on-demand.
var intervalAliases = map[string]struct{}{
	"@once":    {},
	"@hourly":  {},
	"@daily":   {},
	"@weekly":  {},
	"@monthly": {},
	"@yearly":  {},
}

// cronParser accepts exactly five fields (minute hour dom month dow),
// no descriptors and no seconds field.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// checkInterval validates a schedule interval: either a named alias or a
// 5-field cron expression.
func checkInterval(value string) error {
	if _, ok := intervalAliases[value]; ok {
		return nil
	}
	if strings.HasPrefix(value, "@") {
		return fmt.Errorf("unknown interval alias %q", value)
	}
	if _, err := cronParser.Parse(value); err != nil {
		return fmt.Errorf("invalid cron expression %q: %v", value, err)
	}
	return nil
}
