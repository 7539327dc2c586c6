package fetch

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt decodes a JSON number or numeric string. Anything else decodes
// to zero.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler
func (i *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if n, err := strconv.Atoi(s); err == nil {
		*i = FlexInt(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*i = FlexInt(int(f))
		return nil
	}
	*i = 0
	return nil
}

// FlexString decodes a JSON string or number into a string. Other values
// decode to the empty string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = FlexString(n.String())
		return nil
	}
	*s = ""
	return nil
}

// String returns the decoded value
func (s FlexString) String() string {
	return string(s)
}
