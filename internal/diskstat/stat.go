package diskstat

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Size is a byte count. It is encoded in JSON as a decimal string because totals of
// very large trees exceed the safe integer range of JavaScript clients.
type Size uint64

// MarshalJSON implements json.Marshaler.
func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(s), 10))), nil
}

// UnmarshalJSON accepts both the quoted decimal form and a plain number.
func (s *Size) UnmarshalJSON(data []byte) error {
	text := string(data)
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = unquoted
	}

	value, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing size %s: %w", data, err)
	}

	*s = Size(value)

	return nil
}

// Timestamp is a point in time encoded as milliseconds since the Unix epoch.
type Timestamp time.Time

// NewTimestamp returns a pointer to t as a Timestamp, or nil for the zero time.
func NewTimestamp(t time.Time) *Timestamp {
	if t.IsZero() {
		return nil
	}

	ts := Timestamp(t)

	return &ts
}

// Time returns the timestamp as a time.Time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UnixMilli())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var millis int64
	if err := json.Unmarshal(data, &millis); err != nil {
		return fmt.Errorf("parsing timestamp: %w", err)
	}

	*t = Timestamp(time.UnixMilli(millis))

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Timestamp) MarshalYAML() (any, error) {
	return time.Time(t).UnixMilli(), nil
}

// Stat is the rolled-up statistic of one directory, including all of its descendants.
type Stat struct {
	// Path is the absolute path of the directory.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	// Size is the sum of all descendant file sizes.
	Size Size `json:"size" yaml:"size"`
	// NumFiles is the number of files in the subtree, zero unless counting is enabled.
	NumFiles int64 `json:"numFiles" yaml:"numFiles"`
	// NumDirs is the number of directories in the subtree, zero unless counting is enabled.
	NumDirs int64 `json:"numDirs" yaml:"numDirs"`
	// BirthTime is the creation time of the directory itself, when the platform reports one.
	BirthTime *Timestamp `json:"birthTime,omitempty" yaml:"birthTime,omitempty"`
	// LastModifiedTime is the modification time of the directory itself.
	LastModifiedTime *Timestamp `json:"lastModifiedTime,omitempty" yaml:"lastModifiedTime,omitempty"`
	// SubFolders holds the statistics of child directories in nested mode when requested.
	SubFolders []*Stat `json:"subFolders,omitempty" yaml:"subFolders,omitempty"`
	// Children lists the absolute paths of child directories in accumulating mode.
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
}

// zeroStat is the statistic of a subtree that could not be measured.
func zeroStat(path string) *Stat {
	return &Stat{Path: path}
}
