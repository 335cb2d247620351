package policy

import (
	"math"
	"strings"

	"github.com/julianstephens/go-utils/jsonutil"
	"github.com/swiftcitrus/hydrus/internal/hydrus"
)

// LoadFile reads an options file, rejecting unknown option names before any
// file handle is opened. Decoding is strict: an unrecognized key fails with
// ErrUnknownOption rather than being silently dropped. Missing or unreadable
// files and malformed JSON fail with ErrLoadFailed.
func LoadFile(path string) (hydrus.Options, error) {
	var opts hydrus.Options
	if err := jsonutil.ReadFileStrict(path, &opts); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return hydrus.Options{}, wrapConfigErr(ErrUnknownOption, path, nil, err)
		}
		return hydrus.Options{}, wrapConfigErr(ErrLoadFailed, path, nil, err)
	}
	return opts, nil
}

// FromMap converts a loosely-typed option map (as handed over by an external
// config loader) into Options. Unknown names fail with ErrUnknownOption;
// wrongly-typed values fail with ErrInvalidOption.
func FromMap(raw map[string]any) (hydrus.Options, error) {
	var opts hydrus.Options

	for name, value := range raw {
		switch name {
		case "journal_mode":
			s, ok := value.(string)
			if !ok {
				return opts, wrapConfigErr(ErrInvalidOption, name, value, nil)
			}
			opts.JournalMode = s
		case "commit_period_seconds":
			n, ok := toInt(value)
			if !ok {
				return opts, wrapConfigErr(ErrInvalidOption, name, value, nil)
			}
			opts.CommitPeriodSeconds = &n
		case "cache_size_mb":
			n, ok := toInt(value)
			if !ok {
				return opts, wrapConfigErr(ErrInvalidOption, name, value, nil)
			}
			opts.CacheSizeMB = &n
		case "synchronous_level":
			n, ok := toInt(value)
			if !ok {
				return opts, wrapConfigErr(ErrInvalidOption, name, value, nil)
			}
			opts.SynchronousLevel = &n
		case "spill_to_disk":
			b, ok := value.(bool)
			if !ok {
				return opts, wrapConfigErr(ErrInvalidOption, name, value, nil)
			}
			opts.SpillToDisk = &b
		case "temp_directory":
			s, ok := value.(string)
			if !ok {
				return opts, wrapConfigErr(ErrInvalidOption, name, value, nil)
			}
			opts.TempDirectory = s
		case "server_role":
			b, ok := value.(bool)
			if !ok {
				return opts, wrapConfigErr(ErrInvalidOption, name, value, nil)
			}
			opts.ServerRole = b
		default:
			return opts, wrapConfigErr(ErrUnknownOption, name, value, nil)
		}
	}

	return opts, nil
}

// toInt accepts the integer shapes a JSON-ish config loader produces.
func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
