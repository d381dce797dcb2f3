// Package jobqueue tracks chunks of frames through the processing pool.
// The queue bounds how many chunks run at once: a chunk is only handed
// out while the running count is below the pool limit, and the count is
// released when the chunk reaches a terminal state.
package jobqueue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChunkState represents the current state of a chunk in the queue.
type ChunkState int

const (
	StatePending ChunkState = iota
	StateInProgress
	StateCompleted
	StateCancelled
	StateError
)

func (s ChunkState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateInProgress:
		return "InProgress"
	case StateCompleted:
		return "Completed"
	case StateCancelled:
		return "Cancelled"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Chunk is an ordered, contiguous batch of frame paths owned by one
// worker for sequential processing.
type Chunk struct {
	ID     string
	Frames []string
	State  ChunkState
	Err    string

	CreatedAt   time.Time
	ClaimedAt   time.Time
	CompletedAt time.Time
	ErroredAt   time.Time
}

// Queue is a thread-safe chunk queue with a bounded admission count.
type Queue struct {
	mu      sync.Mutex
	chunks  map[string]*Chunk
	order   []string
	running int
	limit   int
	db      *sql.DB

	// Signal announces that a chunk may be claimable.
	Signal chan string
}

// NewQueue initializes a queue admitting at most limit concurrent chunks.
func NewQueue(limit int) *Queue {
	if limit < 1 {
		limit = 1
	}
	return &Queue{
		chunks: make(map[string]*Chunk),
		limit:  limit,
		Signal: make(chan string, 100),
	}
}

// NewQueueWithDB initializes a queue that mirrors chunk state into a
// SQLite ledger for post-mortem inspection.
func NewQueueWithDB(limit int, db *sql.DB) *Queue {
	q := NewQueue(limit)
	q.db = db
	if err := q.createChunksTable(); err != nil {
		log.Printf("Failed to create chunks table: %v", err)
	}
	return q
}

func (q *Queue) createChunksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		frames TEXT, -- JSON array
		state INTEGER NOT NULL,
		error TEXT,
		created_at DATETIME NOT NULL,
		claimed_at DATETIME,
		completed_at DATETIME,
		errored_at DATETIME,
		position INTEGER
	)`
	_, err := q.db.Exec(query)
	return err
}

// saveChunkToDB mirrors one chunk into the ledger. Callers hold q.mu.
func (q *Queue) saveChunkToDB(c *Chunk) {
	if q.db == nil {
		return
	}
	framesJSON, _ := json.Marshal(c.Frames)
	position := -1
	for i, id := range q.order {
		if id == c.ID {
			position = i
			break
		}
	}
	query := `
	INSERT OR REPLACE INTO chunks (
		id, frames, state, error, created_at, claimed_at, completed_at, errored_at, position
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := q.db.Exec(query,
		c.ID, string(framesJSON), int(c.State), c.Err,
		c.CreatedAt, c.ClaimedAt, c.CompletedAt, c.ErroredAt, position,
	); err != nil {
		log.Printf("Failed to save chunk %s to ledger: %v", c.ID, err)
	}
}

// AddChunk appends a new pending chunk and returns its generated ID.
func (q *Queue) AddChunk(frames []string) (string, error) {
	if len(frames) == 0 {
		return "", errors.New("chunk must contain at least one frame")
	}
	q.mu.Lock()
	id := uuid.NewString()
	c := &Chunk{
		ID:        id,
		Frames:    frames,
		State:     StatePending,
		CreatedAt: time.Now(),
	}
	q.chunks[id] = c
	q.order = append(q.order, id)
	q.saveChunkToDB(c)
	q.mu.Unlock()

	q.Signal <- id
	return id, nil
}

// ClaimChunk hands out the oldest pending chunk if the pool is below its
// admission limit, marking it InProgress. It returns nil when the pool
// is saturated or nothing is pending.
func (q *Queue) ClaimChunk() *Chunk {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running >= q.limit {
		return nil
	}
	for _, id := range q.order {
		c := q.chunks[id]
		if c.State != StatePending {
			continue
		}
		c.State = StateInProgress
		c.ClaimedAt = time.Now()
		q.running++
		q.saveChunkToDB(c)
		return c
	}
	return nil
}

// CompleteChunk marks an in-progress chunk completed and releases its
// admission slot.
func (q *Queue) CompleteChunk(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, exists := q.chunks[id]
	if !exists {
		return errors.New("chunk not found")
	}
	if c.State != StateInProgress {
		return errors.New("chunk is not in progress, cannot complete")
	}
	c.State = StateCompleted
	c.CompletedAt = time.Now()
	q.releaseLocked()
	q.saveChunkToDB(c)
	return nil
}

// ErrorChunk marks an in-progress chunk errored and releases its
// admission slot.
func (q *Queue) ErrorChunk(id string, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	c, exists := q.chunks[id]
	if !exists {
		return errors.New("chunk not found")
	}
	if c.State != StateInProgress {
		return errors.New("chunk is not in progress, cannot set error")
	}
	c.State = StateError
	c.ErroredAt = time.Now()
	if cause != nil {
		c.Err = cause.Error()
	}
	q.releaseLocked()
	q.saveChunkToDB(c)
	return nil
}

// releaseLocked decrements the running count. The guard keeps the count
// from underflowing even under unexpected call ordering.
func (q *Queue) releaseLocked() {
	if q.running > 0 {
		q.running--
	}
}

// CancelPending marks all pending chunks cancelled and returns how many
// were cancelled. In-flight chunks are unaffected.
func (q *Queue) CancelPending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, id := range q.order {
		c := q.chunks[id]
		if c.State != StatePending {
			continue
		}
		c.State = StateCancelled
		q.saveChunkToDB(c)
		n++
	}
	return n
}

// Running returns the number of chunks currently in flight.
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Limit returns the maximum number of concurrently running chunks.
func (q *Queue) Limit() int { return q.limit }

// Pending returns the number of chunks still waiting to be claimed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, id := range q.order {
		if q.chunks[id].State == StatePending {
			n++
		}
	}
	return n
}

// Chunks returns a snapshot of all chunks in insertion order.
func (q *Queue) Chunks() []Chunk {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Chunk, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.chunks[id])
	}
	return out
}
