package n8n

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

const (
	scheduleTriggerType = "n8n-nodes-base.scheduleTrigger"
	legacyCronType      = "n8n-nodes-base.cron"
)

// Frequencies reported for a workflow schedule.
const (
	FrequencyHourly  = "hourly"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
	FrequencyCron    = "cron"
)

// Schedule is the display form of a workflow trigger: a wall clock time
// (HH:MM, empty when not fixed) and a frequency.
type Schedule struct {
	Time       string
	Frequency  string
	Expression string
}

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// DescribeSchedule looks for the first enabled schedule or cron trigger node.
func DescribeSchedule(nodes []Node) (Schedule, bool) {
	for _, n := range nodes {
		if n.Disabled {
			continue
		}
		switch n.Type {
		case scheduleTriggerType:
			if s, ok := describeScheduleTrigger(n.Parameters); ok {
				return s, true
			}
		case legacyCronType:
			if s, ok := describeLegacyCron(n.Parameters); ok {
				return s, true
			}
		}
	}
	return Schedule{}, false
}

func describeScheduleTrigger(params map[string]any) (Schedule, bool) {
	rule, _ := params["rule"].(map[string]any)
	intervals, _ := rule["interval"].([]any)
	for _, raw := range intervals {
		iv, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		field, _ := iv["field"].(string)
		hour := intParam(iv, "triggerAtHour", 0)
		minute := intParam(iv, "triggerAtMinute", 0)
		switch field {
		case "cronExpression":
			expr, _ := iv["expression"].(string)
			if s, err := DescribeCron(expr); err == nil {
				return s, true
			}
		case "seconds":
			return Schedule{Frequency: fmt.Sprintf("every %ds", intParam(iv, "secondsInterval", 30))}, true
		case "minutes":
			return Schedule{Frequency: fmt.Sprintf("every %dm", intParam(iv, "minutesInterval", 5))}, true
		case "hours":
			n := intParam(iv, "hoursInterval", 1)
			if n == 1 {
				return Schedule{Time: fmt.Sprintf("xx:%02d", minute), Frequency: FrequencyHourly}, true
			}
			return Schedule{Time: fmt.Sprintf("xx:%02d", minute), Frequency: fmt.Sprintf("every %dh", n)}, true
		case "weeks":
			return Schedule{Time: clock(hour, minute), Frequency: FrequencyWeekly}, true
		case "months":
			return Schedule{Time: clock(hour, minute), Frequency: FrequencyMonthly}, true
		case "", "days":
			n := intParam(iv, "daysInterval", 1)
			if n == 1 {
				return Schedule{Time: clock(hour, minute), Frequency: FrequencyDaily}, true
			}
			return Schedule{Time: clock(hour, minute), Frequency: fmt.Sprintf("every %dd", n)}, true
		}
	}
	return Schedule{}, false
}

func describeLegacyCron(params map[string]any) (Schedule, bool) {
	times, _ := params["triggerTimes"].(map[string]any)
	items, _ := times["item"].([]any)
	for _, raw := range items {
		it, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		mode, _ := it["mode"].(string)
		hour := intParam(it, "hour", 14)
		minute := intParam(it, "minute", 0)
		switch mode {
		case "everyMinute":
			return Schedule{Frequency: "every 1m"}, true
		case "everyHour":
			return Schedule{Time: fmt.Sprintf("xx:%02d", minute), Frequency: FrequencyHourly}, true
		case "everyDay":
			return Schedule{Time: clock(hour, minute), Frequency: FrequencyDaily}, true
		case "everyWeek":
			return Schedule{Time: clock(hour, minute), Frequency: FrequencyWeekly}, true
		case "everyMonth":
			return Schedule{Time: clock(hour, minute), Frequency: FrequencyMonthly}, true
		case "custom":
			expr, _ := it["cronExpression"].(string)
			if s, err := DescribeCron(expr); err == nil {
				return s, true
			}
		}
	}
	return Schedule{}, false
}

// DescribeCron validates a cron expression (5 or 6 fields, or a descriptor
// such as @daily) and classifies it.
func DescribeCron(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if _, err := cronParser.Parse(expr); err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	out := Schedule{Expression: expr, Frequency: FrequencyCron}

	switch expr {
	case "@daily", "@midnight":
		out.Time, out.Frequency = "00:00", FrequencyDaily
		return out, nil
	case "@hourly":
		out.Time, out.Frequency = "xx:00", FrequencyHourly
		return out, nil
	case "@weekly":
		out.Time, out.Frequency = "00:00", FrequencyWeekly
		return out, nil
	case "@monthly":
		out.Time, out.Frequency = "00:00", FrequencyMonthly
		return out, nil
	case "@yearly", "@annually":
		out.Time, out.Frequency = "00:00", FrequencyYearly
		return out, nil
	}
	if strings.HasPrefix(expr, "@") {
		return out, nil
	}

	fields := strings.Fields(expr)
	if len(fields) == 6 {
		fields = fields[1:]
	}
	minute, hour, dom, month, dow := fields[0], fields[1], fields[2], fields[3], fields[4]
	m, mOK := atoi(minute)
	h, hOK := atoi(hour)

	switch {
	case mOK && hour == "*" && dom == "*" && month == "*" && dow == "*":
		out.Time, out.Frequency = fmt.Sprintf("xx:%02d", m), FrequencyHourly
	case mOK && hOK && dom == "*" && month == "*" && dow == "*":
		out.Time, out.Frequency = clock(h, m), FrequencyDaily
	case mOK && hOK && dom == "*" && month == "*":
		out.Time, out.Frequency = clock(h, m), FrequencyWeekly
	case mOK && hOK && month == "*" && dow == "*":
		out.Time, out.Frequency = clock(h, m), FrequencyMonthly
	case mOK && hOK:
		out.Time = clock(h, m)
	}
	return out, nil
}

func clock(h, m int) string { return fmt.Sprintf("%02d:%02d", h, m) }

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func intParam(m map[string]any, key string, fallback int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
