// Package stream delivers the narration audio to browsers, both as a
// chunked MP3 HTTP stream and as low-latency Opus over WebRTC. A single
// broadcaster fans the player's frames out to every connected listener.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/fabulaforge/fabula/internal/audio"
)

// listenerBuffer is ~3 seconds of frames at 20ms per frame.
const listenerBuffer = 150

// Broadcaster fans out PCM frames from the player to N listeners, keeping
// the wire busy with silence whenever playback is idle or paused so
// downstream encoders never stall.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives PCM frames from the broadcaster.
type Listener struct {
	C    chan []int16 // buffered channel of 20ms PCM frames
	done chan struct{}
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener. Returns a Listener that receives frames.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan []int16, listenerBuffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	close(l.done)
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Run paces frames from source to every listener at the frame rate. When
// the source has nothing ready, a silent frame goes out instead. Returns
// when ctx is cancelled or source closes.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []int16) {
	silence := make([]int16, audio.FrameSamples)
	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case frame, ok := <-source:
				if !ok {
					return
				}
				b.broadcast(frame)
			default:
				b.broadcast(silence)
			}
		}
	}
}

// broadcast delivers one frame to every listener. Slow listeners get frames
// dropped rather than blocking the broadcast.
func (b *Broadcaster) broadcast(frame []int16) {
	b.mu.RLock()
	for l := range b.listeners {
		select {
		case l.C <- frame:
		default:
		}
	}
	b.mu.RUnlock()
}
