package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cogbot/cogbot/pkg/boterr"
	"github.com/cogbot/cogbot/pkg/catalog"
	"github.com/cogbot/cogbot/pkg/chatmodel"
	"github.com/cogbot/cogbot/pkg/config"
	"github.com/cogbot/cogbot/pkg/dispatcher"
	"github.com/cogbot/cogbot/pkg/feed"
	"github.com/cogbot/cogbot/pkg/log"
	"github.com/cogbot/cogbot/pkg/scanner"
	"github.com/cogbot/cogbot/pkg/sheets"
	"github.com/cogbot/cogbot/pkg/storage"
	"github.com/cogbot/cogbot/pkg/supervisor"
	"github.com/cogbot/cogbot/pkg/types"
)

// unconfiguredDocument is the stub sheets.Document every ManagedDocument
// is built against until an operator plugs in a real spreadsheet client.
// Every call fails with a RemoteError, which the dispatcher already
// knows how to turn into a user-facing "temporarily unavailable" reply
// and a ScanFailuresTotal increment rather than a crash.
type unconfiguredDocument struct {
	spreadsheetID string
}

func (d *unconfiguredDocument) err(op string) error {
	return &boterr.RemoteError{Op: op, Err: fmt.Errorf("spreadsheet %s: no remote document client configured", d.spreadsheetID)}
}

func (d *unconfiguredDocument) Title(ctx context.Context) (string, error) {
	return "", d.err("title")
}

func (d *unconfiguredDocument) WholeSheet(ctx context.Context) ([][]string, error) {
	return nil, d.err("whole_sheet")
}

func (d *unconfiguredDocument) BatchGet(ctx context.Context, ranges []string, dim sheets.MajorDimension) ([]sheets.RangeBlock, error) {
	return nil, d.err("batch_get")
}

func (d *unconfiguredDocument) BatchUpdate(ctx context.Context, updates []sheets.Update) error {
	return d.err("batch_update")
}

func (d *unconfiguredDocument) ChangeWorksheet(ctx context.Context, tabName string) error {
	return d.err("change_worksheet")
}

// buildDocuments adapts one concrete scanner per configured worksheet
// kind to dispatcher.ManagedDocument. "recruits" is accepted by config
// but has no scanner of its own yet — admin top computes its ranking
// from fort/undermining contribution totals instead (pkg/selector), so
// it is logged and skipped rather than wired to a no-op scan.
func buildDocuments(scanners []config.ScannerConfig) map[string]*dispatcher.ManagedDocument {
	out := make(map[string]*dispatcher.ManagedDocument, len(scanners))
	logger := log.WithComponent("wiring")

	for _, sc := range scanners {
		doc := &unconfiguredDocument{spreadsheetID: sc.SpreadsheetID}
		name := sc.Kind

		switch sc.Kind {
		case "fort":
			s := scanner.NewFortScanner(doc)
			out[name] = &dispatcher.ManagedDocument{
				Name:            name,
				Scan:            s.Scan,
				Title:           doc.Title,
				ChangeWorksheet: doc.ChangeWorksheet,
				Write:           writeAdapter(doc),
			}
		case "undermine_main":
			s := scanner.NewUndermineScanner(doc, types.UmSheetMain)
			out[name] = &dispatcher.ManagedDocument{
				Name:            name,
				Scan:            s.Scan,
				Title:           doc.Title,
				ChangeWorksheet: doc.ChangeWorksheet,
				Write:           writeAdapter(doc),
			}
		case "undermine_snipe":
			s := scanner.NewUndermineScanner(doc, types.UmSheetSnipe)
			out[name] = &dispatcher.ManagedDocument{
				Name:            name,
				Scan:            s.Scan,
				Title:           doc.Title,
				ChangeWorksheet: doc.ChangeWorksheet,
				Write:           writeAdapter(doc),
			}
		case "kos":
			s := scanner.NewKosScanner(doc)
			out[name] = &dispatcher.ManagedDocument{
				Name:            name,
				Scan:            s.Scan,
				Title:           doc.Title,
				ChangeWorksheet: doc.ChangeWorksheet,
				Write:           writeAdapter(doc),
			}
		case "carrier_ids":
			s := scanner.NewCarrierScanner(doc)
			out[name] = &dispatcher.ManagedDocument{
				Name:            name,
				Scan:            func(ctx context.Context, sess *storage.Session) error { return s.Scan(ctx, sess, time.Now()) },
				Title:           doc.Title,
				ChangeWorksheet: doc.ChangeWorksheet,
				Write:           writeAdapter(doc),
			}
		default:
			logger.Warn().Str("kind", sc.Kind).Msg("no scanner implemented for configured worksheet kind, skipping")
		}
	}
	return out
}

func writeAdapter(doc sheets.Document) func(ctx context.Context, updates ...sheets.Update) error {
	return func(ctx context.Context, updates ...sheets.Update) error {
		return doc.BatchUpdate(ctx, updates)
	}
}

// buildCatalogs returns the galaxy system and station catalogs. Neither
// is backed by a real data source here (spec.md §1/§6 external-
// collaborator boundary, pkg/catalog's own doc comment): the in-memory
// fakes stand in until an operator supplies a galaxy data dump.
func buildCatalogs() (catalog.Systems, catalog.Stations) {
	return catalog.NewFakeSystems(), &catalog.FakeStations{}
}

// unconfiguredFeedSource is the stub feed.Source the ingester runs
// against until an operator supplies a concrete EDDN/ZeroMQ client
// (spec.md §1/§4.5 external-collaborator boundary). Subscribe returns at
// once with a channel that never delivers a message and is never closed,
// rather than erroring into a reconnect storm, since there is nothing to
// reconnect to.
type unconfiguredFeedSource struct{}

func (unconfiguredFeedSource) Subscribe(ctx context.Context) (<-chan feed.Message, error) {
	ch := make(chan feed.Message)
	go func() {
		<-ctx.Done()
	}()
	return ch, nil
}

// registerScanTasks adds one supervised periodic-rescan task per managed
// document, refreshing the cache every cfg.SchedulerDelay seconds (60
// when that is unset or not positive), per spec.md §4.6's "scanner
// refresh" task.
func registerScanTasks(super *supervisor.Supervisor, store *storage.Store, cfg *config.Watcher, docs map[string]*dispatcher.ManagedDocument) {
	logger := log.WithComponent("wiring")
	for name, doc := range docs {
		name, doc := name, doc
		super.Add("scan:"+name, "periodic rescan of "+name, func(stopCh <-chan struct{}) error {
			for {
				delay := time.Duration(cfg.Get().SchedulerDelay) * time.Second
				if delay <= 0 {
					delay = 60 * time.Second
				}
				select {
				case <-time.After(delay):
				case <-stopCh:
					return nil
				}

				sess, err := store.Begin(context.Background())
				if err != nil {
					logger.Error().Err(err).Str("document", name).Msg("scan session open failed")
					continue
				}
				scanErr := doc.Scan(context.Background(), sess)
				sess.Finish(&scanErr)
				if scanErr != nil {
					logger.Warn().Err(scanErr).Str("document", name).Msg("periodic scan failed")
				}
			}
		})
	}
}

// registerFeedTasks wires the streaming ingester and the carrier summary
// poster as supervised tasks (spec.md §4.5/§4.6). channel is nil unless
// cfg.CarrierChannel resolves to a concrete chatmodel.Channel — callers
// that have no chat transport configured still get the reap/log side of
// the pipeline, just no posted summaries. The ingester is returned so
// its LastMessageAt can back the "feed" health check.
func registerFeedTasks(super *supervisor.Supervisor, store *storage.Store, cfg *config.Watcher, channel chatmodel.Channel) (*feed.Ingester, error) {
	logDir := cfg.Get().FeedLogDir
	if logDir == "" {
		logDir = "./feed-log"
	}
	writer, err := feed.NewLogWriter(logDir)
	if err != nil {
		return nil, fmt.Errorf("open feed log writer: %w", err)
	}

	ingester := feed.NewIngester(unconfiguredFeedSource{}, store, writer)
	super.Add("feed-ingester", "streaming event feed ingestion", ingester.Run)

	poster := feed.NewSummaryPoster(store, cfg, channel)
	super.Add("feed-summary", "periodic carrier movement summary", poster.Run)
	return ingester, nil
}

// resolveCarrierChannel is the seam an operator's concrete chatmodel
// implementation plugs into; absent one, carrier summaries are computed
// and reaped but never posted anywhere (see registerFeedTasks).
func resolveCarrierChannel(channelID string) chatmodel.Channel {
	if channelID == "" {
		return nil
	}
	return nil
}
