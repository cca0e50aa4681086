package sc2ranks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

func makeCharacters(n int) []Character {
	chars := make([]Character, n)
	for i := range chars {
		chars[i] = Character{Region: "eu", Name: fmt.Sprintf("player%d", i), BnetID: int64(1000 + i)}
	}
	return chars
}

// echoTransport answers a mass request with one object per character in the body.
type echoTransport struct {
	mu     sync.Mutex
	urls   []string
	bodies []string
	failOn int
}

func (e *echoTransport) Fetch(ctx context.Context, target string, body []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.urls = append(e.urls, target)
	e.bodies = append(e.bodies, string(body))
	if e.failOn > 0 && len(e.bodies) == e.failOn {
		return nil, errors.New("connection refused")
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for i := 0; ; i++ {
		name := form.Get(fmt.Sprintf("characters[%d][name]", i))
		if name == "" {
			break
		}
		out = append(out, map[string]any{
			"name":     name,
			"bracket":  form.Get("team[bracket]"),
			"portrait": map[string]any{"icon_id": i},
		})
	}
	return json.Marshal(out)
}

func (e *echoTransport) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.bodies)
}

func chunkSizes(chunks [][]Character) []int {
	sizes := make([]int, 0, len(chunks))
	for _, chunk := range chunks {
		sizes = append(sizes, len(chunk))
	}
	return sizes
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name  string
		count int
		size  int
		want  []int
	}{
		{"empty", 0, MaxCharacters, []int{}},
		{"one", 1, MaxCharacters, []int{1}},
		{"exactly one chunk", 98, MaxCharacters, []int{98}},
		{"one over", 99, MaxCharacters, []int{98, 1}},
		{"exact multiple", 196, MaxCharacters, []int{98, 98}},
		{"small chunks", 5, 2, []int{2, 2, 1}},
		{"invalid size falls back", 100, 0, []int{98, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunks(makeCharacters(tt.count), tt.size)
			assert.Equal(t, tt.want, chunkSizes(chunks))
		})
	}
}

func TestChunks_PreservesOrder(t *testing.T) {
	chars := makeCharacters(7)

	var flat []Character
	for _, chunk := range Chunks(chars, 3) {
		flat = append(flat, chunk...)
	}
	assert.Equal(t, chars, flat)
}

func TestBatchIterator_AllChunks(t *testing.T) {
	transport := &echoTransport{}
	client := NewClient("test-key", WithTransport(transport), WithBaseURL("http://sc2ranks.test/api"))

	it := client.FetchMassBaseCharacters(context.Background(), makeCharacters(196))
	assert.Equal(t, 2, it.Chunks())
	assert.Equal(t, 0, transport.calls(), "no request before the first Next")

	nodes, err := Collect(it)
	require.NoError(t, err)
	require.Len(t, nodes, 196)
	assert.Equal(t, 2, transport.calls())
	assert.Equal(t, 2, it.Requests())

	for i, node := range nodes {
		assert.Equal(t, fmt.Sprintf("player%d", i), node.Name())
		require.NotNil(t, node.Portrait())
	}

	assert.Equal(t, "http://sc2ranks.test/api/mass/base/char/?appKey=test-key", transport.urls[0])
	assert.True(t, strings.HasPrefix(transport.bodies[1], "characters[0][region]=eu&characters[0][name]=player98&"))

	_, err = it.Next()
	assert.Equal(t, iterator.Done, err)
}

func TestBatchIterator_IsLazy(t *testing.T) {
	transport := &echoTransport{}
	client := NewClient("test-key", WithTransport(transport))

	it := client.FetchMassBaseCharacters(context.Background(), makeCharacters(196))

	node, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "player0", node.Name())
	assert.Equal(t, 1, transport.calls())

	for i := 1; i < 98; i++ {
		_, err := it.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, transport.calls(), "second chunk must wait until the first is consumed")

	_, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, transport.calls())
}

func TestBatchIterator_Empty(t *testing.T) {
	transport := &echoTransport{}
	client := NewClient("test-key", WithTransport(transport))

	it := client.FetchMassBaseCharacters(context.Background(), nil)

	_, err := it.Next()
	assert.Equal(t, iterator.Done, err)
	assert.Equal(t, 0, transport.calls())
}

func TestBatchIterator_StopsOnFailure(t *testing.T) {
	transport := &echoTransport{failOn: 2}
	client := NewClient("test-key", WithTransport(transport))

	it := client.FetchMassBaseCharacters(context.Background(), makeCharacters(250))

	nodes, err := Collect(it)
	assert.Len(t, nodes, 98, "first chunk stays delivered")
	assert.True(t, IsUnavailable(err))

	_, again := it.Next()
	assert.Equal(t, err, again)
	assert.Equal(t, 2, transport.calls(), "no chunk after the failing one is requested")
}

func TestBatchIterator_APIError(t *testing.T) {
	client := NewClient("test-key", WithTransport(TransportFunc(func(ctx context.Context, target string, body []byte) ([]byte, error) {
		return []byte(`{"error": "too many characters"}`), nil
	})))

	_, err := Collect(client.FetchMassBaseCharacters(context.Background(), makeCharacters(3)))
	assert.True(t, IsNotFound(err))
}

func TestBatchIterator_ParameterError(t *testing.T) {
	transport := &echoTransport{}
	client := NewClient("test-key", WithTransport(transport))

	chars := makeCharacters(2)
	chars[1].BnetID = 0

	it := client.FetchMassBaseCharacters(context.Background(), chars)
	_, err := it.Next()

	var paramErr *ParameterError
	assert.ErrorAs(t, err, &paramErr)
	assert.Equal(t, 0, transport.calls())
	assert.Equal(t, 0, it.Requests())
}

func TestBatchIterator_ChunkSizeOption(t *testing.T) {
	transport := &echoTransport{}
	client := NewClient("test-key", WithTransport(transport), WithChunkSize(10))

	nodes, err := Collect(client.FetchMassBaseCharacters(context.Background(), makeCharacters(25)))
	require.NoError(t, err)
	assert.Len(t, nodes, 25)
	assert.Equal(t, 3, transport.calls())
}

func TestBatchIterator_MassTeams(t *testing.T) {
	transport := &echoTransport{}
	client := NewClient("test-key", WithTransport(transport), WithBaseURL("http://sc2ranks.test/api"))

	nodes, err := Collect(client.FetchMassCharacterTeams(context.Background(), makeCharacters(99), Bracket3v3, true))
	require.NoError(t, err)
	assert.Len(t, nodes, 99)
	require.Equal(t, 2, transport.calls())

	for _, body := range transport.bodies {
		assert.True(t, strings.HasPrefix(body, "team[bracket]=3&team[is_random]=1&characters[0]"), body)
	}
	assert.Equal(t, "http://sc2ranks.test/api/mass/base/teams/?appKey=test-key", transport.urls[1])
	assert.Equal(t, "3", nodes[0].GetString("bracket"))
}

func TestBatchIterator_CancelledContext(t *testing.T) {
	transport := &echoTransport{}
	client := NewClient("test-key", WithTransport(transport))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchMassBaseCharacters(ctx, makeCharacters(3)).Next()
	assert.True(t, IsUnavailable(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, transport.calls())
}
