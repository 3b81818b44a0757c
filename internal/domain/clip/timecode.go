package clip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseTimestamp converts "HH:MM:SS,mmm" (or with a dot) to seconds.
// Malformed input yields 0.
func ParseTimestamp(ts string) float64 {
	ts = strings.ReplaceAll(strings.TrimSpace(ts), ",", ".")
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0
	}
	return float64(h*3600+m*60) + s
}

// FormatTimecode renders seconds as M:SS, or H:MM:SS past the hour.
func FormatTimecode(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	total := int(sec)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Seconds is a timestamp that decodes from either a JSON number or an SRT-style string.
type Seconds float64

// UnmarshalJSON accepts 12.5, "12.5", "00:00:12,500" and null.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if data[0] != '"' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("timestamp: %w", err)
		}
		*s = Seconds(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
		*s = Seconds(f)
		return nil
	}
	*s = Seconds(ParseTimestamp(str))
	return nil
}
