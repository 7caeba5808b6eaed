package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 以 "30s" 这类字符串出现在 JSON 中的 time.Duration
//
// 也接受整数（纳秒）。
type Duration time.Duration

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", x, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(int64(x))
	default:
		return fmt.Errorf("config: duration must be a string or integer, got %s", data)
	}
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Std 返回 time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String 返回 "1m30s" 形式
func (d Duration) String() string { return time.Duration(d).String() }
