package fallback

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"math/rand"
	"strings"
)

// Fallback identifiers carried in degraded envelopes.
const (
	NameTemplateResponse = "template-response"
	NamePollinationsText = "pollinations-text"
	NameLocalSVG         = "local-fallback-svg"
)

// ChatTemplate is served when every chat tier is down.
const ChatTemplate = "Local model is currently unavailable. I can still help with planning and execution steps while Ollama is offline."

// HybridTemplate is served when both the local and cloud chat tiers are down.
const HybridTemplate = "AI models unavailable. Please check Ollama or configure MOONSHOT_API_KEY."

func seed(prompt string) int64 {
	sum := sha256.Sum256([]byte(prompt))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ImageDataURL renders a deterministic placeholder for the prompt as an SVG
// data URL. The same prompt always yields the same image, so degraded
// responses stay cacheable.
func ImageDataURL(prompt string, width, height int) string {
	width = clamp(width, 256, 1024)
	height = clamp(height, 256, 1024)
	rnd := rand.New(rand.NewSource(seed(prompt)))

	c1 := fmt.Sprintf("rgb(%d,%d,%d)", 10+rnd.Intn(71), 10+rnd.Intn(71), 40+rnd.Intn(101))
	c2 := fmt.Sprintf("rgb(%d,%d,%d)", 70+rnd.Intn(111), 20+rnd.Intn(101), 70+rnd.Intn(111))

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, width, height)
	fmt.Fprintf(&b, `<defs><linearGradient id="bg" x1="0" y1="0" x2="0" y2="1">`)
	fmt.Fprintf(&b, `<stop offset="0" stop-color="%s"/><stop offset="1" stop-color="%s"/>`, c1, c2)
	fmt.Fprintf(&b, `</linearGradient></defs>`)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="url(#bg)"/>`, width, height)

	for i := 0; i < 14; i++ {
		x := rnd.Intn(width + 1)
		y := rnd.Intn(height + 1)
		maxRad := min(width, height) / 5
		if maxRad < 32 {
			maxRad = 32
		}
		rad := 18 + rnd.Intn(maxRad-17)
		opacity := 0.3
		if i%2 == 0 {
			opacity = 0.16
		}
		fill := fmt.Sprintf("rgb(%d,%d,%d)", 130+rnd.Intn(126), 130+rnd.Intn(126), 130+rnd.Intn(126))
		fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="%d" fill="%s" fill-opacity="%.2f"/>`, x, y, rad, fill, opacity)
	}

	panelY := height - 142
	fmt.Fprintf(&b, `<rect x="24" y="%d" width="%d" height="122" rx="14" fill="rgb(12,18,28)" fill-opacity="0.78"/>`, panelY, width-48)
	fmt.Fprintf(&b, `<text x="40" y="%d" font-family="monospace" font-size="14" fill="rgb(245,245,245)">Alabobai Local Image Generation</text>`, panelY+28)
	fmt.Fprintf(&b, `<text x="40" y="%d" font-family="monospace" font-size="12" fill="rgb(220,230,240)">%s</text>`, panelY+54, escape(truncate(prompt, 180)))
	b.WriteString(`</svg>`)

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(b.String()))
}

// VideoDataURL renders an animated SVG placeholder clip for the prompt as a
// data URL. Deterministic for the same prompt.
func VideoDataURL(prompt string, durationSeconds, width, height int) string {
	width = clamp(width, 256, 1024)
	height = clamp(height, 256, 1024)
	durationSeconds = clamp(durationSeconds, 1, 30)
	rnd := rand.New(rand.NewSource(seed("video::" + prompt)))

	c1 := fmt.Sprintf("rgb(%d,%d,%d)", 10+rnd.Intn(71), 10+rnd.Intn(71), 40+rnd.Intn(101))
	c2 := fmt.Sprintf("rgb(%d,%d,%d)", 70+rnd.Intn(111), 20+rnd.Intn(101), 70+rnd.Intn(111))

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`, width, height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, width, height, c1)

	for i := 0; i < 6; i++ {
		x := rnd.Intn(width + 1)
		y := rnd.Intn(height + 1)
		rad := 24 + rnd.Intn(64)
		drift := 20 + rnd.Intn(60)
		fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="%d" fill="%s" fill-opacity="0.4">`, x, y, rad, c2)
		fmt.Fprintf(&b, `<animate attributeName="cy" values="%d;%d;%d" dur="%ds" repeatCount="indefinite"/>`, y, y-drift, y, durationSeconds)
		b.WriteString(`</circle>`)
	}

	fmt.Fprintf(&b, `<text x="24" y="%d" font-family="monospace" font-size="14" fill="rgb(245,245,245)">Alabobai Local Video Generation</text>`, height-48)
	fmt.Fprintf(&b, `<text x="24" y="%d" font-family="monospace" font-size="12" fill="rgb(220,230,240)">%s</text>`, height-26, escape(truncate(prompt, 180)))
	b.WriteString(`</svg>`)

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(b.String()))
}
