package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/joshjon/kit/log"
	"github.com/nats-io/nats.go"

	"github.com/coro-sh/catalog/catalogapi"
	"github.com/coro-sh/catalog/constants"
	"github.com/coro-sh/catalog/logkey"
	"github.com/coro-sh/catalog/namespace"
	"github.com/coro-sh/catalog/notif"
)

var (
	seedDomains = []string{"sales", "marketing", "finance", "ops", "analytics"}
	seedLayers  = []string{"raw", "staging", "curated"}
	seedOwners  = []string{"alice", "bob", "carol"}
)

// seedNamespaces creates count random top level namespaces, each with a random
// set of child layers.
func seedNamespaces(ctx context.Context, logger log.Logger, baseURL string, count int) error {
	for range count {
		top := fmt.Sprintf("%s_%s", seedDomains[rand.Intn(len(seedDomains))], uuid.NewString()[:4])
		if err := createNamespace(ctx, baseURL, []string{top}, randomProperties()); err != nil {
			return err
		}

		for _, layer := range seedLayers[:1+rand.Intn(len(seedLayers))] {
			if err := createNamespace(ctx, baseURL, []string{top, layer}, randomProperties()); err != nil {
				return err
			}
		}
		logger.Info("seeded namespace", logkey.Namespace, top)
	}
	return nil
}

func randomProperties() map[string]string {
	props := map[string]string{
		"owner": seedOwners[rand.Intn(len(seedOwners))],
	}
	if rand.Intn(2) == 0 {
		props["retention.days"] = fmt.Sprint(7 * (1 + rand.Intn(8)))
	}
	return props
}

func createNamespace(ctx context.Context, baseURL string, levels []string, props map[string]string) error {
	body, err := json.Marshal(catalogapi.CreateNamespaceRequest{Namespace: levels, Properties: props})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/namespaces", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("create namespace %s: unexpected status %d", strings.Join(levels, "."), res.StatusCode)
	}
	return nil
}

// tailEvents logs every namespace event published on the event bus.
func tailEvents(logger log.Logger, natsURL string) (func(), error) {
	nc, err := nats.Connect(natsURL, nats.Name(constants.AppName+"_dev_tail"))
	if err != nil {
		return nil, fmt.Errorf("connect event bus: %w", err)
	}

	_, err = nc.Subscribe(notif.AllEventsSubject(constants.DefaultEventSubjectPrefix), func(msg *nats.Msg) {
		var evt namespace.Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			logger.Error("failed to decode event", "error", err, "subject", msg.Subject)
			return
		}
		logger.Info("namespace event",
			logkey.EventID, evt.ID.String(),
			logkey.EventType, string(evt.Type),
			logkey.EventSubject, msg.Subject,
			logkey.Namespace, strings.Join(evt.Namespace, constants.NamespaceDisplaySeparator),
		)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe events: %w", err)
	}

	return nc.Close, nil
}
