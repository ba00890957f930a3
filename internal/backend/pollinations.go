package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultPollinationsTextURL  = "https://text.pollinations.ai"
	defaultPollinationsImageURL = "https://image.pollinations.ai"
)

// Pollinations is the client for the free hosted generation service, used as
// the middle tier of the chat and image cascades.
type Pollinations struct {
	textURL  string
	imageURL string
	client   *http.Client
}

func NewPollinations(textURL, imageURL string, timeout time.Duration) *Pollinations {
	if textURL == "" {
		textURL = defaultPollinationsTextURL
	}
	if imageURL == "" {
		imageURL = defaultPollinationsImageURL
	}
	return &Pollinations{
		textURL:  textURL,
		imageURL: imageURL,
		client:   &http.Client{Timeout: timeout},
	}
}

// Text fetches a completion for the prompt.
func (p *Pollinations) Text(ctx context.Context, prompt string) (string, error) {
	endpoint := p.textURL + "/" + url.PathEscape(prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	res, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pollinations text: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("pollinations text failed: %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("pollinations text: %w", err)
	}

	return string(body), nil
}

// ImageURL builds a hosted image URL for the prompt. No request is made; the
// service renders on fetch, so producing the URL cannot fail.
func (p *Pollinations) ImageURL(prompt string, width, height int) string {
	return fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true",
		p.imageURL, url.PathEscape(prompt), width, height)
}
