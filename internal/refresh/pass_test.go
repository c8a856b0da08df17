package refresh

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mkravets/Freshboard/internal/domain"
	"github.com/mkravets/Freshboard/internal/params"
)

// --- Подменные порты ---

type fakeQueryStore struct {
	outdated      []domain.Query
	pastScheduled []domain.Query
	listErr       error
	cleared       [][]int64
}

func (s *fakeQueryStore) ListOutdated(_ context.Context, _ time.Time) ([]domain.Query, error) {
	return s.outdated, s.listErr
}

func (s *fakeQueryStore) ListPastScheduled(_ context.Context, _ time.Time) ([]domain.Query, error) {
	return s.pastScheduled, nil
}

func (s *fakeQueryStore) ClearSchedules(_ context.Context, ids []int64) error {
	s.cleared = append(s.cleared, ids)
	return nil
}

type fakeDataSourceStore struct {
	all []domain.DataSource
}

func (s *fakeDataSourceStore) ListAll(_ context.Context) ([]domain.DataSource, error) {
	return s.all, nil
}

type fakeResultStore struct {
	deleted   int64
	gotMaxAge time.Duration
	gotLimit  int
}

func (s *fakeResultStore) DeleteUnused(_ context.Context, maxAge time.Duration, limit int) (int64, error) {
	s.gotMaxAge = maxAge
	s.gotLimit = limit
	return s.deleted, nil
}

type dispatched struct {
	queryID  int64
	text     string
	metadata map[string]any
}

type fakeDispatcher struct {
	executed []dispatched
	schemas  []int64
	err      error
}

func (d *fakeDispatcher) PublishExecuteQuery(_ context.Context, query *domain.Query, resolvedText string, metadata map[string]any) error {
	if d.err != nil {
		return d.err
	}
	d.executed = append(d.executed, dispatched{queryID: query.ID, text: resolvedText, metadata: metadata})
	return nil
}

func (d *fakeDispatcher) PublishRefreshSchema(_ context.Context, dataSourceID int64) error {
	if d.err != nil {
		return d.err
	}
	d.schemas = append(d.schemas, dataSourceID)
	return nil
}

type fakeStatusStore struct {
	fields map[string]string
	sets   []map[string]any
}

func (s *fakeStatusStore) ReadAll(_ context.Context) (map[string]string, error) {
	return s.fields, nil
}

func (s *fakeStatusStore) BulkSet(_ context.Context, fields map[string]any) error {
	s.sets = append(s.sets, fields)
	return nil
}

type fakeBlacklist struct {
	members map[int64]struct{}
	reads   int
}

func (b *fakeBlacklist) Members(_ context.Context) (map[int64]struct{}, error) {
	b.reads++
	return b.members, nil
}

type failureEntry struct {
	queryID int64
	message string
}

type fakeFailureLog struct {
	entries []failureEntry
}

func (l *fakeFailureLog) Record(_ context.Context, query *domain.Query, message string) {
	l.entries = append(l.entries, failureEntry{queryID: query.ID, message: message})
}

// fakeResolver возвращает текст как есть либо ошибку по тексту запроса.
type fakeResolver struct {
	failWith map[string]error
}

func (r *fakeResolver) Apply(_ context.Context, text string, _ []domain.ParameterDef, _ map[string]any) (string, error) {
	if err, ok := r.failWith[text]; ok {
		return "", err
	}
	return text, nil
}

type passFixture struct {
	queries     *fakeQueryStore
	dataSources *fakeDataSourceStore
	results     *fakeResultStore
	dispatcher  *fakeDispatcher
	status      *fakeStatusStore
	blacklist   *fakeBlacklist
	failures    *fakeFailureLog
	resolver    *fakeResolver
}

func newPassFixture() *passFixture {
	return &passFixture{
		queries:     &fakeQueryStore{},
		dataSources: &fakeDataSourceStore{},
		results:     &fakeResultStore{},
		dispatcher:  &fakeDispatcher{},
		status:      &fakeStatusStore{},
		blacklist:   &fakeBlacklist{members: map[int64]struct{}{}},
		failures:    &fakeFailureLog{},
		resolver:    &fakeResolver{},
	}
}

func (f *passFixture) pass() *Pass {
	return New(Config{
		Queries:     f.queries,
		DataSources: f.dataSources,
		Results:     f.results,
		Dispatcher:  f.dispatcher,
		Status:      f.status,
		Blacklist:   f.blacklist,
		Failures:    f.failures,
		Resolver:    f.resolver,
	})
}

// --- RefreshQueries ---

func TestPass_RefreshQueries(t *testing.T) {
	org := &domain.Organization{ID: 1, Name: "main"}
	activeDS := &domain.DataSource{ID: 1, Name: "pg", Org: org}
	pausedDS := &domain.DataSource{ID: 2, Name: "wh", Org: org, Paused: true, PauseReason: "maintenance"}

	f := newPassFixture()
	f.queries.outdated = []domain.Query{
		{ID: 1, QueryText: "SELECT 1", Org: org, DataSource: activeDS, DataSourceID: &activeDS.ID},
		{
			ID: 2, QueryText: "SELECT {{ x }}", Org: org, DataSource: activeDS, DataSourceID: &activeDS.ID,
			Parameters: []domain.ParameterDef{{Name: "x", Type: domain.ParameterQuery}},
		},
		{ID: 3, QueryText: "SELECT 3", Org: org, DataSource: pausedDS, DataSourceID: &pausedDS.ID},
	}
	f.resolver.failWith = map[string]error{
		"SELECT {{ x }}": &params.DetachedQueryError{QueryID: 42},
	}

	if err := f.pass().RefreshQueries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Ровно один запрос ушёл в очередь
	if len(f.dispatcher.executed) != 1 {
		t.Fatalf("expected 1 dispatched query, got %d", len(f.dispatcher.executed))
	}
	got := f.dispatcher.executed[0]
	if got.queryID != 1 {
		t.Errorf("expected query 1 dispatched, got %d", got.queryID)
	}
	if got.text != "SELECT 1" {
		t.Errorf("expected stored text, got %q", got.text)
	}
	if got.metadata["Query ID"] != int64(1) {
		t.Errorf("metadata should carry query id, got %v", got.metadata["Query ID"])
	}
	if got.metadata["Username"] != "Scheduled" {
		t.Errorf("metadata should mark scheduled execution, got %v", got.metadata["Username"])
	}

	// Отвязанный dropdown — ровно одна запись в журнале,
	// с id внешнего и внутреннего запросов
	if len(f.failures.entries) != 1 {
		t.Fatalf("expected 1 failure entry, got %d", len(f.failures.entries))
	}
	entry := f.failures.entries[0]
	if entry.queryID != 2 {
		t.Errorf("failure should reference query 2, got %d", entry.queryID)
	}
	if !strings.Contains(entry.message, "2") || !strings.Contains(entry.message, "(42)") {
		t.Errorf("failure message should name both query ids, got %q", entry.message)
	}

	// Сводка перезаписана: один запрос поставлен
	if len(f.status.sets) != 1 {
		t.Fatalf("expected 1 status write, got %d", len(f.status.sets))
	}
	fields := f.status.sets[0]
	if fields["outdated_queries_count"] != "1" {
		t.Errorf("expected count 1, got %v", fields["outdated_queries_count"])
	}
	if fields["query_ids"] != "[1]" {
		t.Errorf("expected ids [1], got %v", fields["query_ids"])
	}
	if fields["last_refresh_at"] == nil {
		t.Error("completion timestamp should be set")
	}
}

func TestPass_RefreshQueries_NoOutdated(t *testing.T) {
	// Пустой снапшот: сводка всё равно перезаписывается свежей
	// отметкой завершения и пустым списком
	f := newPassFixture()

	if err := f.pass().RefreshQueries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.dispatcher.executed) != 0 {
		t.Errorf("nothing should be dispatched, got %d", len(f.dispatcher.executed))
	}
	if len(f.status.sets) != 1 {
		t.Fatalf("status record should still be overwritten, got %d writes", len(f.status.sets))
	}
	fields := f.status.sets[0]
	if fields["outdated_queries_count"] != "0" {
		t.Errorf("expected count 0, got %v", fields["outdated_queries_count"])
	}
	if fields["query_ids"] != "[]" {
		t.Errorf("expected empty id list, got %v", fields["query_ids"])
	}
}

func TestPass_RefreshQueries_InvalidParameters(t *testing.T) {
	org := &domain.Organization{ID: 1}
	ds := &domain.DataSource{ID: 1, Name: "pg", Org: org}

	f := newPassFixture()
	f.queries.outdated = []domain.Query{
		{
			ID: 7, QueryText: "SELECT {{ n }}", Org: org, DataSource: ds, DataSourceID: &ds.ID,
			Parameters: []domain.ParameterDef{{Name: "n", Type: domain.ParameterNumber, Value: "bad"}},
		},
		{ID: 8, QueryText: "SELECT 8", Org: org, DataSource: ds, DataSourceID: &ds.ID},
	}
	f.resolver.failWith = map[string]error{
		"SELECT {{ n }}": &params.InvalidParameterError{Names: []string{"n"}},
	}

	if err := f.pass().RefreshQueries(context.Background()); err != nil {
		t.Fatalf("per-item failure should not abort the pass: %v", err)
	}

	// Сбойный исключён, следующий обработан
	if len(f.dispatcher.executed) != 1 || f.dispatcher.executed[0].queryID != 8 {
		t.Errorf("expected only query 8 dispatched, got %+v", f.dispatcher.executed)
	}
	if len(f.failures.entries) != 1 || f.failures.entries[0].queryID != 7 {
		t.Errorf("expected failure entry for query 7, got %+v", f.failures.entries)
	}
	if !strings.Contains(f.failures.entries[0].message, "invalid parameters") {
		t.Errorf("message should mention invalid parameters, got %q", f.failures.entries[0].message)
	}
}

func TestPass_RefreshQueries_FeatureDisabled(t *testing.T) {
	org := &domain.Organization{ID: 1}
	ds := &domain.DataSource{ID: 1, Org: org}

	f := newPassFixture()
	f.queries.outdated = []domain.Query{
		{ID: 1, QueryText: "SELECT 1", Org: org, DataSource: ds, DataSourceID: &ds.ID},
	}

	p := New(Config{
		Queries:     f.queries,
		DataSources: f.dataSources,
		Results:     f.results,
		Dispatcher:  f.dispatcher,
		Status:      f.status,
		Blacklist:   f.blacklist,
		Failures:    f.failures,
		Resolver:    f.resolver,
		Filter:      NewFilter(true, nil),
	})

	if err := p.RefreshQueries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.dispatcher.executed) != 0 {
		t.Error("nothing should be dispatched when refresh is disabled")
	}
	if len(f.failures.entries) != 0 {
		t.Error("skips are not failures")
	}
	if f.status.sets[0]["outdated_queries_count"] != "0" {
		t.Errorf("expected count 0, got %v", f.status.sets[0]["outdated_queries_count"])
	}
}

func TestPass_RefreshQueries_DispatchErrorAborts(t *testing.T) {
	org := &domain.Organization{ID: 1}
	ds := &domain.DataSource{ID: 1, Org: org}

	f := newPassFixture()
	f.queries.outdated = []domain.Query{
		{ID: 1, QueryText: "SELECT 1", Org: org, DataSource: ds, DataSourceID: &ds.ID},
	}
	f.dispatcher.err = errors.New("broker unreachable")

	err := f.pass().RefreshQueries(context.Background())
	if err == nil {
		t.Fatal("infrastructure error should propagate")
	}
	if len(f.status.sets) != 0 {
		t.Error("status record should not be written after an aborted pass")
	}
}

func TestPass_RefreshQueries_ResolverInfraErrorAborts(t *testing.T) {
	org := &domain.Organization{ID: 1}
	ds := &domain.DataSource{ID: 1, Org: org}

	f := newPassFixture()
	f.queries.outdated = []domain.Query{
		{ID: 1, QueryText: "SELECT {{ x }}", Org: org, DataSource: ds, DataSourceID: &ds.ID},
	}
	f.resolver.failWith = map[string]error{
		"SELECT {{ x }}": errors.New("store unavailable"),
	}

	if err := f.pass().RefreshQueries(context.Background()); err == nil {
		t.Fatal("non-typed resolver error should propagate")
	}
	if len(f.failures.entries) != 0 {
		t.Error("infrastructure errors do not belong to the failure journal")
	}
}

// --- RefreshSchemas ---

func TestPass_RefreshSchemas(t *testing.T) {
	org := &domain.Organization{ID: 1, Name: "main"}
	disabledOrg := &domain.Organization{ID: 2, Name: "closed", Disabled: true}

	f := newPassFixture()
	f.dataSources.all = []domain.DataSource{
		{ID: 1, Name: "pg", Org: org},
		{ID: 2, Name: "wh", Org: org, Paused: true, PauseReason: "billing"},
		{ID: 3, Name: "ch", Org: org},
		{ID: 4, Name: "old", Org: disabledOrg},
	}
	f.blacklist.members = map[int64]struct{}{3: {}}

	if err := f.pass().RefreshSchemas(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.dispatcher.schemas) != 1 || f.dispatcher.schemas[0] != 1 {
		t.Errorf("expected only data source 1 dispatched, got %v", f.dispatcher.schemas)
	}
	if f.blacklist.reads != 1 {
		t.Errorf("blacklist should be read once per pass, got %d reads", f.blacklist.reads)
	}
}

func TestPass_RefreshSchemas_PausedAndBlacklisted(t *testing.T) {
	// Источник и на паузе, и в чёрном списке: причина пропуска — пауза
	org := &domain.Organization{ID: 1}

	f := newPassFixture()
	f.dataSources.all = []domain.DataSource{
		{ID: 5, Name: "wh", Org: org, Paused: true, PauseReason: "billing"},
	}
	f.blacklist.members = map[int64]struct{}{5: {}}

	filter := NewFilter(false, nil)
	reason, skip := filter.CheckDataSource(&f.dataSources.all[0], f.blacklist.members)
	if !skip {
		t.Fatal("expected skip")
	}
	if reason != domain.SkipPaused {
		t.Errorf("expected paused, got %s", reason)
	}

	if err := f.pass().RefreshSchemas(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.dispatcher.schemas) != 0 {
		t.Errorf("nothing should be dispatched, got %v", f.dispatcher.schemas)
	}
}

// --- EmptySchedules ---

func TestPass_EmptySchedules(t *testing.T) {
	f := newPassFixture()
	f.queries.pastScheduled = []domain.Query{{ID: 11}, {ID: 12}, {ID: 13}}

	if err := f.pass().EmptySchedules(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.queries.cleared) != 1 {
		t.Fatalf("expected one bulk update, got %d", len(f.queries.cleared))
	}
	ids := f.queries.cleared[0]
	if len(ids) != 3 || ids[0] != 11 || ids[1] != 12 || ids[2] != 13 {
		t.Errorf("expected ids [11 12 13], got %v", ids)
	}
}

// --- CleanupQueryResults ---

func TestPass_CleanupQueryResults_Defaults(t *testing.T) {
	f := newPassFixture()
	f.results.deleted = 42

	if err := f.pass().CleanupQueryResults(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.results.gotMaxAge != 7*24*time.Hour {
		t.Errorf("expected default max age 7d, got %v", f.results.gotMaxAge)
	}
	if f.results.gotLimit != 100 {
		t.Errorf("expected default limit 100, got %d", f.results.gotLimit)
	}
}
