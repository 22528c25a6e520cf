package generator

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const defaultTimestampLayout = "2006-01-02T15:04:05"

func registerBuiltins(r *Registry) {
	r.Register("randip", nil, randIP)
	r.Register("randint", []string{"min", "max"}, randInt)
	r.Register("guid", nil, randGUID)
	r.Register("ulid", nil, randULID)
	r.Register("sid", nil, randSID)
	r.Register("hostname", []string{"prefix"}, randHostname)
	r.Register("timestamp", []string{"layout"}, timestamp)
}

// randIP returns a dotted-quad address with each octet drawn uniformly
// from 0-255.
func randIP(rnd *rand.Rand, _ map[string]string) (string, error) {
	return fmt.Sprintf("%d.%d.%d.%d",
		rnd.Intn(256), rnd.Intn(256), rnd.Intn(256), rnd.Intn(256)), nil
}

// randInt returns a uniformly distributed integer in the inclusive range
// [min, max].
func randInt(rnd *rand.Rand, params map[string]string) (string, error) {
	min, err := intParam("randint", params, "min")
	if err != nil {
		return "", err
	}
	max, err := intParam("randint", params, "max")
	if err != nil {
		return "", err
	}
	if min > max {
		return "", &InvalidParameterError{
			Function: "randint",
			Reason:   fmt.Sprintf("min %d exceeds max %d", min, max),
		}
	}
	return strconv.Itoa(min + rnd.Intn(max-min+1)), nil
}

// randGUID returns a GUID in the braced Windows format. Bytes come from
// the caller's seeded source, not crypto/rand.
func randGUID(rnd *rand.Rand, _ map[string]string) (string, error) {
	id, err := uuid.NewRandomFromReader(rnd)
	if err != nil {
		return "", err
	}
	return "{" + id.String() + "}", nil
}

func randULID(rnd *rand.Rand, _ map[string]string) (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rnd)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// randSID returns a Windows-style SID with a random machine component.
func randSID(rnd *rand.Rand, _ map[string]string) (string, error) {
	return fmt.Sprintf("S-1-5-21-%d", 1000000000+rnd.Int63n(9000000000)), nil
}

func randHostname(rnd *rand.Rand, params map[string]string) (string, error) {
	prefix := strings.TrimSpace(params["prefix"])
	if prefix == "" {
		prefix = "host"
	}
	return fmt.Sprintf("%s-%d", prefix, 1000+rnd.Intn(9000)), nil
}

// timestamp formats the current time. An optional "layout" parameter takes
// a Go reference layout; the default is second-granularity ISO-8601.
func timestamp(_ *rand.Rand, params map[string]string) (string, error) {
	layout := params["layout"]
	if layout == "" {
		layout = defaultTimestampLayout
	}
	return time.Now().Format(layout), nil
}

func intParam(function string, params map[string]string, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, &InvalidParameterError{
			Function: function,
			Reason:   fmt.Sprintf("missing parameter %q", key),
		}
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &InvalidParameterError{
			Function: function,
			Reason:   fmt.Sprintf("parameter %q must be an integer, got %q", key, raw),
		}
	}
	return v, nil
}
