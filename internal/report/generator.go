package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"
	"github.com/SHUNKURANARI/excel/internal/projector"
	"github.com/SHUNKURANARI/excel/internal/sheets"
	"github.com/SHUNKURANARI/excel/internal/sheets/xlsx"
)

// Result is a generated workbook.
type Result struct {
	Kind     Kind
	Filename string
	Data     []byte
	Records  int
}

// Generator fetches work records for a header, projects them onto the
// family's template and serializes the workbook.
type Generator struct {
	records   sheets.RecordStore
	templates sheets.TemplateStore
	opener    sheets.WorkbookOpener
	apps      Apps
	families  map[Kind]Family
	logger    *log.StructuredLogger
}

// Option configures a Generator.
type Option func(*Generator)

// WithApps overrides the record and template locations.
func WithApps(apps Apps) Option {
	return func(g *Generator) { g.apps = apps }
}

// WithOpener replaces the xlsx workbook backend.
func WithOpener(o sheets.WorkbookOpener) Option {
	return func(g *Generator) { g.opener = o }
}

// WithLogger sets the logger used for generation events.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.logger = log.NewStructuredLogger(l.WithComponent(log.ComponentReport)) }
}

func NewGenerator(records sheets.RecordStore, templates sheets.TemplateStore, opts ...Option) *Generator {
	g := &Generator{
		records:   records,
		templates: templates,
		opener:    xlsx.Opener{},
		apps:      DefaultApps(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = log.NewStructuredLogger(log.FromContext(context.Background()).WithComponent(log.ComponentReport))
	}
	g.families = Families(g.apps)
	return g
}

// Family returns the configuration of a report kind.
func (g *Generator) Family(kind Kind) (Family, bool) {
	f, ok := g.families[kind]
	return f, ok
}

// Apps returns the record and template locations in use.
func (g *Generator) Apps() Apps { return g.apps }

// Check validates a request without touching any store.
func (g *Generator) Check(kind Kind, h core.Header) (Family, error) {
	fam, ok := g.families[kind]
	if !ok {
		return Family{}, &core.ValidationError{Message: fmt.Sprintf("unknown report kind %q", kind)}
	}
	if err := h.Validate(); err != nil {
		return Family{}, err
	}
	if fam.Party(h) == "" {
		return Family{}, &core.ValidationError{
			Message: "party is empty",
			Hints:   []string{fam.PartyLabel + "を入力してください。"},
		}
	}
	return fam, nil
}

// Generate builds the workbook of kind for h. No sheet is touched until
// every record has decoded, so a field error never yields partial output.
func (g *Generator) Generate(ctx context.Context, kind Kind, h core.Header) (Result, error) {
	fam, err := g.Check(kind, h)
	if err != nil {
		return Result{}, err
	}
	party := fam.Party(h)

	q, err := fam.Query(g.apps.Records, h)
	if err != nil {
		return Result{}, err
	}
	raws, err := g.records.FetchAll(ctx, q)
	if err != nil {
		return Result{}, fmt.Errorf("fetch records: %w", err)
	}
	if len(raws) == 0 {
		return Result{}, core.NoRecordsError(fam.PartyLabel, fam.Fields.LaborCount)
	}
	recs, err := fam.Fields.DecodeAll(raws)
	if err != nil {
		return Result{}, err
	}
	slog.DebugContext(ctx, "Records fetched",
		log.FieldReportKind, kind, log.FieldParty, party, log.FieldRecordCount, len(recs))

	tmpl, err := g.templates.FetchTemplate(ctx, g.apps.Templates, fam.TemplateRecord)
	if err != nil {
		return Result{}, fmt.Errorf("fetch template: %w", err)
	}
	wb, err := g.opener.Open(tmpl)
	if err != nil {
		return Result{}, fmt.Errorf("open template: %w", err)
	}
	if c, ok := wb.(interface{ Close() error }); ok {
		defer c.Close()
	}

	in := projector.Input{Records: core.NewRecordView(recs), Header: h}
	for _, p := range fam.Projectors() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := p.Project(wb, in); err != nil {
			return Result{}, err
		}
	}

	data, err := wb.Bytes()
	if err != nil {
		return Result{}, fmt.Errorf("write workbook: %w", err)
	}
	res := Result{
		Kind:     kind,
		Filename: fam.Filename(h),
		Data:     data,
		Records:  len(recs),
	}
	g.logger.LogReportGenerated(ctx, kind.String(), party, h.StartDate, h.EndDate, res.Filename, res.Records, len(data))
	return res, nil
}

// GenerateFromHeader resolves the kind from the header's out_category.
func (g *Generator) GenerateFromHeader(ctx context.Context, h core.Header) (Result, error) {
	kind, err := ParseKind(h.OutCategory)
	if err != nil {
		return Result{}, &core.ValidationError{
			Message: err.Error(),
			Hints:   []string{"出力区分を「" + strings.Join([]string{"請求書", "支払い通知書"}, "」または「") + "」にしてください。"},
		}
	}
	return g.Generate(ctx, kind, h)
}
