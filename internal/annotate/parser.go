package annotate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RouteUpdate is the subset of a goBMP parsed unicast prefix message the
// annotator cares about: where the route was seen and which communities
// it carries.
type RouteUpdate struct {
	RouterID  string
	Prefix    string
	Action    string // "A" or "D"
	IsEOR     bool
	CommStd   []string
	CommExt   []string
	CommLarge []string
}

// DecodeRouteUpdate decodes a goBMP parsed unicast prefix JSON message.
func DecodeRouteUpdate(data []byte) (*RouteUpdate, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	u := &RouteUpdate{}

	// Router ID: router_hash → router_ip → bmp_router fallback
	u.RouterID = stringField(raw, "router_hash")
	if u.RouterID == "" {
		u.RouterID = stringField(raw, "router_ip")
	}
	if u.RouterID == "" {
		u.RouterID = stringField(raw, "bmp_router")
	}
	if u.RouterID == "" {
		return nil, fmt.Errorf("no router identifier found")
	}

	u.IsEOR = boolField(raw, "is_eor")

	// Action (case-insensitive)
	switch strings.ToLower(stringField(raw, "action")) {
	case "del", "delete":
		u.Action = "D"
	default:
		u.Action = "A"
	}

	u.Prefix = stringField(raw, "prefix")
	if u.Prefix == "" && !u.IsEOR {
		return nil, fmt.Errorf("missing prefix")
	}
	if u.Prefix != "" && !strings.Contains(u.Prefix, "/") {
		if prefixLen := intField(raw, "prefix_len"); prefixLen > 0 {
			u.Prefix = fmt.Sprintf("%s/%d", u.Prefix, prefixLen)
		}
	}

	u.CommStd = stringArrayField(raw, "community_list")
	u.CommExt = stringArrayField(raw, "ext_community_list")
	u.CommLarge = stringArrayField(raw, "large_community_list")

	// goBMP v1.1.0+ nests attributes under base_attrs.
	if ba, ok := raw["base_attrs"].(map[string]any); ok {
		if u.CommStd == nil {
			u.CommStd = stringArrayField(ba, "community_list")
		}
		if u.CommExt == nil {
			u.CommExt = stringArrayField(ba, "ext_community_list")
		}
		if u.CommLarge == nil {
			u.CommLarge = stringArrayField(ba, "large_community_list")
		}
	}

	return u, nil
}

// HasCommunities reports whether the update carries anything to resolve.
func (u *RouteUpdate) HasCommunities() bool {
	return len(u.CommStd) > 0 || len(u.CommExt) > 0 || len(u.CommLarge) > 0
}

// Helper functions for safe field extraction from map[string]any.

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		switch s := v.(type) {
		case string:
			return s
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		switch b := v.(type) {
		case bool:
			return b
		case string:
			return strings.EqualFold(b, "true")
		}
	}
	return false
}

func intField(m map[string]any, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case string:
			i, _ := strconv.Atoi(n)
			return i
		}
	}
	return 0
}

func stringArrayField(m map[string]any, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch arr := v.(type) {
	case []any:
		result := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		if len(result) == 0 {
			return nil
		}
		return result
	case string:
		// Some goBMP versions send communities as a single comma- or
		// space-separated string.
		if arr == "" {
			return nil
		}
		sep := " "
		if strings.Contains(arr, ",") {
			sep = ","
		}
		parts := strings.Split(arr, sep)
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				result = append(result, s)
			}
		}
		if len(result) == 0 {
			return nil
		}
		return result
	}
	return nil
}
