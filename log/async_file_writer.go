package log

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// AsyncFileWriter decouples log formatting from disk I/O: writes are queued
// on a channel and drained by a single goroutine so a slow disk never stalls
// the foreground event loop. Rotation and retention are delegated to
// lumberjack rather than hand-rolled, since size/age-based rotation is
// exactly what lumberjack already does correctly.
type AsyncFileWriter struct {
	sink    *lumberjack.Logger
	queue   chan []byte
	done    chan struct{}
	started bool
}

// NewAsyncFileWriter creates a writer rotating filePath once it exceeds
// maxSizeMB, keeping at most maxBackups old files for maxAgeDays.
func NewAsyncFileWriter(filePath string, maxSizeMB, maxBackups, maxAgeDays int) *AsyncFileWriter {
	return &AsyncFileWriter{
		sink: &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		},
		queue: make(chan []byte, 1024),
		done:  make(chan struct{}),
	}
}

// Start launches the drain goroutine. It is a no-op if already started.
func (w *AsyncFileWriter) Start() {
	if w.started {
		return
	}
	w.started = true
	go w.loop()
}

// Stop drains any queued records and stops the goroutine.
func (w *AsyncFileWriter) Stop() {
	if !w.started {
		return
	}
	close(w.queue)
	<-w.done
	w.sink.Close()
	w.started = false
}

// Write enqueues p for asynchronous persistence. It never blocks on disk I/O.
func (w *AsyncFileWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	w.queue <- buf
	return len(p), nil
}

func (w *AsyncFileWriter) loop() {
	defer close(w.done)
	for rec := range w.queue {
		w.sink.Write(rec)
	}
}
