package sc2ranks

import (
	"context"

	"google.golang.org/api/iterator"
)

// Chunks splits chars into consecutive slices of at most size elements. The last chunk may
// be shorter; no empty chunk is ever produced.
func Chunks(chars []Character, size int) [][]Character {
	if size <= 0 {
		size = MaxCharacters
	}

	count := (len(chars) + size - 1) / size
	chunks := make([][]Character, 0, count)
	for start := 0; start < len(chars); start += size {
		end := start + size
		if end > len(chars) {
			end = len(chars)
		}
		chunks = append(chunks, chars[start:end])
	}
	return chunks
}

type buildFunc func(chunk []Character) (target string, body []byte, err error)

// BatchIterator yields the nodes of a mass request, one chunk of characters per request.
// The next request is only sent once the nodes of the previous one are consumed.
//
//	it := client.FetchMassBaseCharacters(ctx, chars)
//	for {
//		node, err := it.Next()
//		if err == iterator.Done {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		...
//	}
type BatchIterator struct {
	ctx    context.Context
	client *Client
	chunks [][]Character
	build  buildFunc

	next     int
	buf      []*Node
	err      error
	requests int
}

func newBatchIterator(ctx context.Context, c *Client, chars []Character, size int, build buildFunc) *BatchIterator {
	return &BatchIterator{
		ctx:    ctx,
		client: c,
		chunks: Chunks(chars, size),
		build:  build,
	}
}

// Next returns the next node, iterator.Done once every chunk has been delivered, or the
// error that stopped the batch. Errors are sticky.
func (it *BatchIterator) Next() (*Node, error) {
	for len(it.buf) == 0 {
		if it.err != nil {
			return nil, it.err
		}
		if it.next >= len(it.chunks) {
			return nil, iterator.Done
		}
		if err := it.fetchChunk(); err != nil {
			it.err = err
			return nil, err
		}
	}

	node := it.buf[0]
	it.buf = it.buf[1:]
	return node, nil
}

func (it *BatchIterator) fetchChunk() error {
	if err := it.ctx.Err(); err != nil {
		return &TransportError{Err: err}
	}

	chunk := it.chunks[it.next]
	it.next++

	target, body, err := it.build(chunk)
	if err != nil {
		return err
	}

	it.requests++
	it.client.log.WithField("event", "mass_fetch").
		WithField("chunk", it.next).
		WithField("characters", len(chunk)).
		Debug("fetching sc2ranks batch")

	result, err := it.client.fetch(it.ctx, target, body)
	if err != nil {
		return err
	}
	it.buf = result.Nodes()
	return nil
}

// Requests returns how many requests have been sent so far.
func (it *BatchIterator) Requests() int {
	return it.requests
}

// Chunks returns how many requests the whole batch needs.
func (it *BatchIterator) Chunks() int {
	return len(it.chunks)
}

// Collect drains it. The nodes delivered before a failure are returned along with the error.
func Collect(it *BatchIterator) ([]*Node, error) {
	var nodes []*Node
	for {
		node, err := it.Next()
		if err == iterator.Done {
			return nodes, nil
		}
		if err != nil {
			return nodes, err
		}
		nodes = append(nodes, node)
	}
}
