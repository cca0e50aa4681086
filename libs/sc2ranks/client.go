package sc2ranks

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Client talks to the sc2ranks API. It only holds immutable configuration and is safe
// for concurrent use.
type Client struct {
	appKey    string
	baseURL   string
	transport Transport
	idStyle   IDStyle
	chunkSize int
	log       logrus.FieldLogger
}

type Option func(*Client)

// WithBaseURL points the client at another API root (useful for testing).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.transport = NewHTTPTransport(httpClient)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.transport = NewHTTPTransport(&http.Client{Timeout: timeout})
	}
}

func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithIDStyle selects name!bnet_id (default) or name$code identifiers.
func WithIDStyle(style IDStyle) Option {
	return func(c *Client) {
		c.idStyle = style
	}
}

// WithChunkSize caps the characters sent per mass request. Values outside 1..MaxCharacters
// are ignored.
func WithChunkSize(size int) Option {
	return func(c *Client) {
		if size > 0 && size <= MaxCharacters {
			c.chunkSize = size
		}
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient creates a client using the given API key. See http://www.sc2ranks.com/api.
func NewClient(appKey string, opts ...Option) *Client {
	c := &Client{
		appKey:    appKey,
		baseURL:   DefaultBaseURL,
		transport: NewHTTPTransport(nil),
		idStyle:   IDStyleBnetID,
		chunkSize: MaxCharacters,
		log:       logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log.WithField("event", "new_client").Debug("initialised sc2ranks client")
	return c
}

func (c *Client) IDStyle() IDStyle {
	return c.idStyle
}

// URL returns the absolute URL of an API path, including the app key.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + path + ".json?appKey=" + url.QueryEscape(c.appKey)
}

func (c *Client) massURL(path string) string {
	return c.baseURL + "/" + path + "/?appKey=" + url.QueryEscape(c.appKey)
}

// Fetch requests an API path and returns the validated result.
func (c *Client) Fetch(ctx context.Context, path string) (Result, error) {
	return c.fetch(ctx, c.URL(path), nil)
}

func (c *Client) fetch(ctx context.Context, target string, body []byte) (Result, error) {
	logger := c.log.WithField("url", redact(target))
	logger.WithField("event", "fetch_json").Debug("fetching sc2ranks data")

	data, err := c.transport.Fetch(ctx, target, body)
	if err != nil {
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			err = &TransportError{URL: redact(target), Err: err}
		}
		logger.WithField("event", "fetch_json").Error(err)
		return Result{}, err
	}

	result, err := DecodeResponse(redact(target), data)
	if err != nil {
		if IsNotFound(err) {
			logger.WithField("event", "api_error").Debug(err)
		} else {
			logger.WithField("event", "decode_json").Error(err)
		}
		return Result{}, err
	}
	return result, nil
}

func (c *Client) fetchSingle(ctx context.Context, path string) (*Node, error) {
	result, err := c.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	node, ok := result.Single()
	if !ok {
		return nil, &DecodeError{URL: redact(c.URL(path)), Err: errUnexpectedShape}
	}
	return node, nil
}

// SearchCharacter searches characters by name. Only the first 10 names are returned and
// the search is case-insensitive.
func (c *Client) SearchCharacter(ctx context.Context, region, name string, searchType SearchType) (*Node, error) {
	path, err := SearchPath(region, name, searchType)
	if err != nil {
		return nil, err
	}
	return c.fetchSingle(ctx, path)
}

// SearchProfile finds characters by team or achievement stats, without needing the
// battle.net id.
func (c *Client) SearchProfile(ctx context.Context, q ProfileQuery) ([]*Node, error) {
	path, err := ProfileSearchPath(q)
	if err != nil {
		return nil, err
	}
	result, err := c.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return result.Nodes(), nil
}

// FetchBaseCharacter returns achievement points, character code, portrait and ids.
func (c *Client) FetchBaseCharacter(ctx context.Context, char Character) (*Node, error) {
	path, err := BaseCharacterPath(char, c.idStyle)
	if err != nil {
		return nil, err
	}
	return c.fetchSingle(ctx, path)
}

// FetchBaseCharacterTeams returns the base character data plus its teams.
func (c *Client) FetchBaseCharacterTeams(ctx context.Context, char Character) (*Node, error) {
	path, err := BaseTeamsPath(char, c.idStyle)
	if err != nil {
		return nil, err
	}
	return c.fetchSingle(ctx, path)
}

// FetchCharacterTeams returns character info and extended team info for one bracket.
func (c *Client) FetchCharacterTeams(ctx context.Context, char Character, bracket Bracket, isRandom bool) (*Node, error) {
	path, err := CharacterTeamsPath(char, c.idStyle, bracket, isRandom)
	if err != nil {
		return nil, err
	}
	return c.fetchSingle(ctx, path)
}

// FetchCustomDivision lists the teams of a custom division. Empty region or league
// means all.
func (c *Client) FetchCustomDivision(ctx context.Context, divisionID int, region, league string, bracket Bracket, isRandom bool) ([]*Node, error) {
	path, err := CustomDivisionPath(divisionID, region, league, bracket, isRandom)
	if err != nil {
		return nil, err
	}
	result, err := c.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return result.Nodes(), nil
}

// FetchMassBaseCharacters fetches base data for any number of characters, MaxCharacters
// per request. Requests are only sent while the iterator is consumed.
func (c *Client) FetchMassBaseCharacters(ctx context.Context, chars []Character) *BatchIterator {
	return newBatchIterator(ctx, c, chars, c.chunkSize, func(chunk []Character) (string, []byte, error) {
		body, err := MassBody(chunk, c.idStyle)
		return c.massURL("mass/base/char"), []byte(body), err
	})
}

// FetchMassCharacterTeams is FetchCharacterTeams for many characters at once.
func (c *Client) FetchMassCharacterTeams(ctx context.Context, chars []Character, bracket Bracket, isRandom bool) *BatchIterator {
	return newBatchIterator(ctx, c, chars, c.chunkSize, func(chunk []Character) (string, []byte, error) {
		body, err := MassTeamsBody(chunk, c.idStyle, bracket, isRandom)
		return c.massURL("mass/base/teams"), []byte(body), err
	})
}

// redact hides the app key in URLs that end up in logs and errors.
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	if q.Get("appKey") == "" {
		return target
	}
	q.Set("appKey", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
