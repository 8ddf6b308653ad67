// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/Thermoquad/edubot/pkg/capture"
)

// Record wraps a transport so every frame it carries is appended to w.
// The result is a Poller or a Notifier, matching the wrapped transport.
func Record(t Transport, w *capture.Writer, logger *zap.SugaredLogger) Transport {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	base := recorder{Transport: t, w: w, logger: logger}

	switch inner := t.(type) {
	case Poller:
		return &recordingPoller{recorder: base, poller: inner}
	case Notifier:
		return &recordingNotifier{recorder: base, notifier: inner}
	}
	return &base
}

type recorder struct {
	Transport
	w      *capture.Writer
	logger *zap.SugaredLogger
}

func (r *recorder) save(dir capture.Direction, frame []byte) {
	if err := r.w.Write(dir, frame); err != nil {
		r.logger.Warnw("capture write failed", "error", err)
	}
}

func (r *recorder) WriteFrame(ctx context.Context, frame []byte) error {
	if err := r.Transport.WriteFrame(ctx, frame); err != nil {
		return err
	}
	r.save(capture.Outbound, frame)
	return nil
}

type recordingPoller struct {
	recorder
	poller Poller
}

func (r *recordingPoller) ReadFrame(ctx context.Context) ([]byte, error) {
	frame, err := r.poller.ReadFrame(ctx)
	if err == nil {
		r.save(capture.Inbound, frame)
	}
	return frame, err
}

type recordingNotifier struct {
	recorder
	notifier Notifier
}

func (r *recordingNotifier) OnFrame(fn func(frame []byte)) {
	r.notifier.OnFrame(func(frame []byte) {
		r.save(capture.Inbound, frame)
		fn(frame)
	})
}
