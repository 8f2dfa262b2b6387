package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wa-webhook/internal/agent"
	"wa-webhook/internal/genai"
	"wa-webhook/internal/types"
	"wa-webhook/internal/wa"
)

// Kind classifies a per-message outcome so tests and logs work off a
// typed value instead of error text.
type Kind string

const (
	KindOK               Kind = "OK"
	KindMediaUnavailable Kind = "MediaUnavailable"
	KindAnalysisFailed   Kind = "AnalysisFailed"
	KindIntentFailed     Kind = "IntentResolutionFailed"
	KindDeliveryFailed   Kind = "DeliveryFailed"
	KindUnsupportedType  Kind = "UnsupportedMessageType"
	KindDuplicate        Kind = "Duplicate"
)

// Result is the outcome of one message pipeline.
type Result struct {
	MessageID string
	From      string
	Kind      Kind
	Err       error
}

// Collaborator handles, injected so tests substitute fakes without
// touching the environment.
type (
	MediaFetcher interface {
		FetchMedia(ctx context.Context, mediaID string) (wa.MediaBlob, error)
	}
	ContentAnalyzer interface {
		Analyze(ctx context.Context, req genai.Request) (string, error)
	}
	IntentResolver interface {
		Resolve(ctx context.Context, text, sender string) (string, error)
	}
	ReplySender interface {
		SendText(ctx context.Context, to, body string) error
	}
	// Deduper guards against webhook redeliveries; nil disables the guard.
	Deduper interface {
		AcquireOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	}
)

const (
	// ApologyReply is sent when a pipeline fails mid-way.
	ApologyReply = "Sorry, something went wrong while processing your message. Please try again."

	dedupeTTL = 7 * 24 * time.Hour
)

// UnsupportedReply is the fixed apology for message types the pipeline
// does not handle.
func UnsupportedReply(t types.MessageType) string {
	return fmt.Sprintf("Sorry, I cannot process %s messages yet.", t)
}

// MessageProcessor fans a webhook delivery out into independent
// per-message pipelines.
type MessageProcessor struct {
	media    MediaFetcher
	analyzer ContentAnalyzer
	resolver IntentResolver
	sender   ReplySender
	dedupe   Deduper
	logger   *slog.Logger

	wg sync.WaitGroup

	// onResult, when set, observes every finished pipeline. Test hook.
	onResult func(Result)
}

func NewMessageProcessor(
	media MediaFetcher,
	analyzer ContentAnalyzer,
	resolver IntentResolver,
	sender ReplySender,
	dedupe Deduper,
	logger *slog.Logger,
) *MessageProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageProcessor{
		media:    media,
		analyzer: analyzer,
		resolver: resolver,
		sender:   sender,
		dedupe:   dedupe,
		logger:   logger,
	}
}

// SetResultHook registers an observer for finished pipelines. Call it
// before Process; it is not safe to change while pipelines run.
func (p *MessageProcessor) SetResultHook(fn func(Result)) {
	p.onResult = fn
}

// Process walks entries, changes, and values, spawning one pipeline per
// message in array order. It returns as soon as every pipeline is
// started; callers that need completion use Wait.
func (p *MessageProcessor) Process(ctx context.Context, ev types.InboundEvent) {
	for _, entry := range ev.Entry {
		for _, ch := range entry.Changes {
			if n := len(ch.Value.Statuses); n > 0 {
				p.logger.Info("status updates received", "count", n)
			}
			for _, msg := range ch.Value.Messages {
				p.spawn(ctx, msg)
			}
		}
	}
}

// Wait blocks until every spawned pipeline has finished. Production
// wiring never calls it; test harnesses do.
func (p *MessageProcessor) Wait() {
	p.wg.Wait()
}

func (p *MessageProcessor) spawn(ctx context.Context, msg types.Message) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		res := p.handle(context.WithoutCancel(ctx), msg)
		if res.Err != nil {
			p.logger.Error("pipeline failed",
				"kind", string(res.Kind), "message_id", res.MessageID, "from", res.From, "err", res.Err)
		}
		if p.onResult != nil {
			p.onResult(res)
		}
	}()
}

func (p *MessageProcessor) handle(ctx context.Context, msg types.Message) Result {
	res := Result{MessageID: msg.ID, From: msg.From, Kind: KindOK}

	if p.dedupe != nil {
		ok, err := p.dedupe.AcquireOnce(ctx, "idem:msg:"+msg.ID, dedupeTTL)
		if err != nil {
			// Best effort: a broken dedupe store must not block pipelines.
			p.logger.Warn("dedupe check failed", "message_id", msg.ID, "err", err)
		} else if !ok {
			p.logger.Info("duplicate message skipped", "message_id", msg.ID)
			res.Kind = KindDuplicate
			return res
		}
	}

	reply, kind, err := p.resolveReply(ctx, msg)
	if err != nil {
		res.Kind, res.Err = classify(err)
		p.apologize(ctx, msg.From)
		return res
	}
	res.Kind = kind

	if err := p.sender.SendText(ctx, msg.From, reply); err != nil {
		res.Kind, res.Err = KindDeliveryFailed, err
		return res
	}
	return res
}

// resolveReply runs the type-specific pipeline and produces the text to
// send back. The switch is exhaustive over the supported variants;
// anything else falls through to the unsupported-type apology.
func (p *MessageProcessor) resolveReply(ctx context.Context, msg types.Message) (string, Kind, error) {
	switch msg.Type {
	case types.MessageText:
		if msg.Text == nil {
			return "", KindOK, fmt.Errorf("%w: text message without body", agent.ErrIntentResolution)
		}
		reply, err := p.resolver.Resolve(ctx, msg.Text.Body, msg.From)
		return reply, KindOK, err

	case types.MessageAudio:
		if msg.Audio == nil {
			return "", KindOK, fmt.Errorf("%w: audio message without payload", wa.ErrMediaUnavailable)
		}
		reply, err := p.analyzeAndResolve(ctx, msg.From, msg.Audio.ID, genai.Request{Kind: genai.KindAudio})
		return reply, KindOK, err

	case types.MessageImage:
		if msg.Image == nil {
			return "", KindOK, fmt.Errorf("%w: image message without payload", wa.ErrMediaUnavailable)
		}
		reply, err := p.analyzeAndResolve(ctx, msg.From, msg.Image.ID, genai.Request{Kind: genai.KindImage, Caption: msg.Image.Caption})
		return reply, KindOK, err

	case types.MessageDocument:
		if msg.Document == nil {
			return "", KindOK, fmt.Errorf("%w: document message without payload", wa.ErrMediaUnavailable)
		}
		reply, err := p.analyzeAndResolve(ctx, msg.From, msg.Document.ID, genai.Request{Kind: genai.KindDocument, Filename: msg.Document.Filename})
		return reply, KindOK, err

	case types.MessageVideo:
		if msg.Video == nil {
			return "", KindOK, fmt.Errorf("%w: video message without payload", wa.ErrMediaUnavailable)
		}
		reply, err := p.analyzeAndResolve(ctx, msg.From, msg.Video.ID, genai.Request{Kind: genai.KindVideo, Caption: msg.Video.Caption})
		return reply, KindOK, err
	}

	p.logger.Warn("unsupported message type", "type", string(msg.Type), "from", msg.From)
	return UnsupportedReply(msg.Type), KindUnsupportedType, nil
}

// analyzeAndResolve is the shared media pipeline: fetch the blob, have
// the model produce a synopsis, then resolve intent on the synopsis.
// The blob's MIME type is the one the fetcher reports, not the one the
// webhook payload claimed.
func (p *MessageProcessor) analyzeAndResolve(ctx context.Context, from, mediaID string, req genai.Request) (string, error) {
	blob, err := p.media.FetchMedia(ctx, mediaID)
	if err != nil {
		return "", err
	}
	req.Data = blob.Data
	req.MIMEType = blob.MIMEType

	synopsis, err := p.analyzer.Analyze(ctx, req)
	if err != nil {
		return "", err
	}
	return p.resolver.Resolve(ctx, synopsis, from)
}

// apologize sends the best-effort fallback after a pipeline failure.
// A failure sending the apology itself is logged and swallowed.
func (p *MessageProcessor) apologize(ctx context.Context, to string) {
	if err := p.sender.SendText(ctx, to, ApologyReply); err != nil {
		p.logger.Error("apology send failed", "to", to, "err", err)
	}
}

func classify(err error) (Kind, error) {
	switch {
	case errors.Is(err, wa.ErrMediaUnavailable):
		return KindMediaUnavailable, err
	case errors.Is(err, genai.ErrAnalysisFailed):
		return KindAnalysisFailed, err
	case errors.Is(err, agent.ErrIntentResolution):
		return KindIntentFailed, err
	case errors.Is(err, wa.ErrDeliveryFailed):
		return KindDeliveryFailed, err
	}
	return KindIntentFailed, err
}
