package pipewire

import "strings"

const (
	// nodeTypeMarker identifies node headers in a pw-cli listing
	nodeTypeMarker = "PipeWire:Interface:Node"
	// mediaClassKey is the property classifying a node
	mediaClassKey = "media.class"

	// DefaultPlaybackClass is the media class of application playback streams
	DefaultPlaybackClass = "Stream/Output/Audio"
	// DefaultLookahead bounds how many lines after a header belong to its block
	DefaultLookahead = 20
)

// Node is a PipeWire graph node found in a listing
type Node struct {
	ID               string            `json:"id"`
	Properties       map[string]string `json:"properties,omitempty"`
	IsPlaybackStream bool              `json:"is_playback_stream"`
}

// MediaClass returns the node's media.class property, if listed
func (n Node) MediaClass() string {
	return n.Properties[mediaClassKey]
}

// Name returns the most descriptive name the listing carried for the node
func (n Node) Name() string {
	for _, key := range []string{"application.name", "node.description", "node.name"} {
		if v := n.Properties[key]; v != "" {
			return v
		}
	}
	return ""
}

// ParseNodes splits a "pw-cli list-objects Node" listing into nodes.
//
// A block starts at a line beginning with "id" that names the node interface type
// and runs until the next "id" line or lookahead lines after the header, whichever
// comes first. A node is a playback stream if a media.class line in its block
// mentions playbackClass.
func ParseNodes(output string, lookahead int, playbackClass string) []Node {
	lines := strings.Split(output, "\n")
	var nodes []Node

	for i, line := range lines {
		if !isNodeHeader(line) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		node := Node{
			ID:         strings.TrimSuffix(fields[1], ","),
			Properties: make(map[string]string),
		}

		for j := i + 1; j < len(lines) && j < i+lookahead; j++ {
			check := lines[j]
			if strings.HasPrefix(strings.TrimSpace(check), "id") {
				break
			}

			if key, value, ok := parseProperty(check); ok {
				node.Properties[key] = value
			}

			if strings.Contains(check, mediaClassKey) && strings.Contains(check, playbackClass) {
				node.IsPlaybackStream = true
			}
		}

		nodes = append(nodes, node)
	}

	return nodes
}

// PlaybackNodes filters nodes down to playback streams
func PlaybackNodes(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		if n.IsPlaybackStream {
			out = append(out, n)
		}
	}
	return out
}

func isNodeHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "id") && strings.Contains(line, nodeTypeMarker)
}

// parseProperty reads a `key = "value"` line; pw-cli prefixes changed props with '*'
func parseProperty(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}

	key = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(key), "*"))
	value = strings.Trim(strings.TrimSpace(value), `"`)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}

	return key, value, true
}
