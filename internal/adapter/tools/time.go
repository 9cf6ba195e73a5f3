package tools

import (
	"fmt"
	"time"
)

// DefaultTimezone is used when the model supplies no timezone or one we
// cannot resolve was explicitly requested.
const DefaultTimezone = "Europe/Riga"

// CurrentTime reports the current wall-clock time in a requested IANA
// timezone.
type CurrentTime struct {
	now func() time.Time
}

func NewCurrentTime() *CurrentTime {
	return &CurrentTime{now: time.Now}
}

func (c *CurrentTime) Name() string {
	return "get_current_time"
}

func (c *CurrentTime) Description() string {
	return "Returns the current date and time for a given timezone. Defaults to Riga, Latvia if no timezone is specified."
}

func (c *CurrentTime) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timezone": map[string]any{
				"type":        "string",
				"description": "The IANA timezone name, e.g. 'Europe/Riga', 'America/New_York'.",
			},
		},
		"required": []string{},
	}
}

func (c *CurrentTime) Call(args map[string]any) (string, error) {
	tz, _ := args["timezone"].(string)
	if tz == "" {
		tz = DefaultTimezone
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		// An unrecognized timezone is a handled result, not a failure.
		return fmt.Sprintf("Sorry, I don't recognize the timezone '%s'.", tz), nil
	}

	now := c.now().In(loc)
	return fmt.Sprintf("The current time in %s is %s.", tz, now.Format("Monday, January 2, 2006 at 3:04 PM")), nil
}
