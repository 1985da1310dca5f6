package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var errMergeWebhookStatus = errors.New("merge events webhook returned non-2xx status")

// MergeEventsDispatcher envia merges concluídos para um webhook externo.
type MergeEventsDispatcher interface {
	Dispatch(ctx context.Context, events []member.MergeEvent) error
}

type mergeEventsDispatcher struct {
	client *http.Client
	url    string
	token  string
	log    waLog.Logger
}

// NewMergeEventsDispatcher cria um dispatcher com URL fixa (via env). URL vazia
// desativa o envio.
func NewMergeEventsDispatcher(url, token string, client *http.Client, log waLog.Logger) MergeEventsDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = waLog.Noop
	}
	return &mergeEventsDispatcher{
		client: client,
		url:    strings.TrimSpace(url),
		token:  strings.TrimSpace(token),
		log:    log,
	}
}

func (d *mergeEventsDispatcher) Dispatch(ctx context.Context, events []member.MergeEvent) error {
	if len(events) == 0 {
		return nil
	}
	if d.url == "" {
		d.log.Debugf("merge events webhook skipped: no URL configured")
		return nil
	}
	payload, err := json.Marshal(events)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	d.log.Debugf("sending %d merge event(s) to %s", len(events), d.url)
	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Warnf("merge events delivery failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		d.log.Warnf("merge events webhook returned status %d", resp.StatusCode)
		return fmt.Errorf("%w: %d", errMergeWebhookStatus, resp.StatusCode)
	}
	return nil
}
