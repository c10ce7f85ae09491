package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/wyfcoding/loanorigination/internal/loan/domain"
	"github.com/wyfcoding/loanorigination/pkg/metrics"
)

// 单轮路由步数上限。正常路径最多经过开案 → 核验 → 授信三次评估，
// 超限说明路由表异常。
const maxRouteSteps = 8

// EngineConfig 引擎控制参数
type EngineConfig struct {
	MaxReflections int
	HistoryLimit   int
}

// Engine 贷款申请工作流引擎。每个入站事件为一轮：
// 读取检查点 → 合并抽取字段 → 按阶段路由评估 → 全量落库 → 发布事件。
// 落库失败时本轮不产生任何可见副作用，同一输入可安全重放。
type Engine struct {
	repo      domain.ApplicationRepository
	extractor domain.FieldExtractor
	store     domain.DocumentStore
	validator domain.DocumentValidator
	publisher domain.EventPublisher

	sales        *SalesEvaluator
	verification *VerificationEvaluator
	underwriting *UnderwritingEvaluator

	collector metrics.MetricsCollector
	locks     *keyedMutex
	cfg       EngineConfig
	logger    *slog.Logger
}

// NewEngine 组装工作流引擎
func NewEngine(
	repo domain.ApplicationRepository,
	extractor domain.FieldExtractor,
	store domain.DocumentStore,
	validator domain.DocumentValidator,
	publisher domain.EventPublisher,
	sales *SalesEvaluator,
	verification *VerificationEvaluator,
	underwriting *UnderwritingEvaluator,
	collector metrics.MetricsCollector,
	cfg EngineConfig,
	logger *slog.Logger,
) *Engine {
	if cfg.MaxReflections <= 0 {
		cfg.MaxReflections = 3
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &Engine{
		repo:         repo,
		extractor:    extractor,
		store:        store,
		validator:    validator,
		publisher:    publisher,
		sales:        sales,
		verification: verification,
		underwriting: underwriting,
		collector:    collector,
		locks:        newKeyedMutex(),
		cfg:          cfg,
		logger:       logger,
	}
}

// ProcessTurn 处理一条入站消息并推进工作流一轮。
// 同一申请的并发轮次串行化，避免检查点互相覆盖。
func (e *Engine) ProcessTurn(ctx context.Context, applicationID string, input TurnInput) (*TurnResult, error) {
	unlock := e.locks.Lock(applicationID)
	defer unlock()

	e.collector.RecordTurn()

	app, err := e.repo.Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load application %s: %w", applicationID, err)
	}

	var events []domain.ApplicationEvent
	if app == nil {
		app = domain.NewApplication(applicationID)
		e.collector.RecordApplication()
		events = append(events, e.newEvent(app, domain.EventApplicationCreated, ""))
	}

	app.AppendMessage("user", input.Message)

	// 终态申请重放同一输入只返回固定答复，不再触发抽取、判定与事件
	if app.IsTerminal() {
		reply := e.terminalReply(app)
		app.AppendMessage("assistant", reply)
		if err := e.repo.Save(ctx, app); err != nil {
			return nil, fmt.Errorf("checkpoint application %s: %w", applicationID, err)
		}
		return e.newTurnResult(app, reply), nil
	}

	// 字段抽取失败时降级为空产出，本轮靠追问继续推进
	fields, err := e.extractor.Extract(ctx, app.RecentMessages(e.cfg.HistoryLimit), app, input.Message)
	if err != nil {
		e.logger.WarnContext(ctx, "field extraction failed, continuing with empty fields",
			"application_id", applicationID, "error", err)
		fields = domain.ExtractedFields{}
	}
	app.MergeExtracted(fields)
	app.ClearInterrupt()

	reply, err := e.drive(ctx, app, input.Message, &events)
	if err != nil {
		// 可恢复错误：检查点不落库，输入可原样重放
		return nil, err
	}
	app.AppendMessage("assistant", reply)

	if err := e.repo.Save(ctx, app); err != nil {
		return nil, fmt.Errorf("checkpoint application %s: %w", applicationID, err)
	}
	e.publish(ctx, events)
	e.refreshPendingGauge(ctx)

	return e.newTurnResult(app, reply), nil
}

// drive 按阶段路由执行评估器直至本轮无法继续推进，
// 返回各评估器答复按顺序拼接的结果。
func (e *Engine) drive(ctx context.Context, app *domain.LoanApplication, rawMessage string, events *[]domain.ApplicationEvent) (string, error) {
	var replies []string

	for step := 0; step < maxRouteSteps; step++ {
		if app.IsTerminal() {
			break
		}

		var out outcome
		var err error
		switch app.Stage {
		case domain.StageDiscovery:
			out = e.sales.Evaluate(ctx, app)
		case domain.StageVerification:
			out, err = e.verification.Evaluate(ctx, app, rawMessage)
		case domain.StageUnderwriting, domain.StageAwaitingDocuments:
			out, err = e.underwriting.Evaluate(ctx, app)
		default:
			return strings.Join(replies, " "), nil
		}
		if err != nil {
			return "", err
		}
		if out.reply != "" {
			replies = append(replies, out.reply)
		}

		if out.backtrack {
			// 回退路由计入反思计数，超限且无中断在场时强制收束，
			// 防止阶段间无限往返
			if app.IncReflection() > e.cfg.MaxReflections && out.suspend == nil {
				replies = append(replies, "Ending due to reflection limit.")
				break
			}
		}

		if app.IsTerminal() {
			e.recordDecision(app, events)
			break
		}

		if out.suspend != nil {
			if err := app.Suspend(out.suspend); err != nil {
				return "", err
			}
			e.collector.RecordInterrupt(string(out.suspend.Kind))
			if out.suspend.Kind == domain.InterruptDocumentUpload {
				*events = append(*events, e.newEvent(app, domain.EventDocumentsRequested, ""))
			}
			break
		}

		if out.next == "" {
			break
		}
		app.Stage = out.next
	}

	return strings.Join(replies, " "), nil
}

// SubmitDocument 接收一份申请材料：存储、校验、并尝试恢复被挂起的授信评估。
func (e *Engine) SubmitDocument(ctx context.Context, applicationID, docType, fileName string, r io.Reader, size int64) (*TurnResult, error) {
	unlock := e.locks.Lock(applicationID)
	defer unlock()

	app, err := e.repo.Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load application %s: %w", applicationID, err)
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}
	if app.IsTerminal() {
		return nil, domain.ErrApplicationClosed
	}

	path, err := e.store.Put(ctx, applicationID, docType, fileName, r, size)
	if err != nil {
		return nil, fmt.Errorf("store document %s/%s: %w", applicationID, docType, err)
	}

	doc := domain.Document{
		Type:        docType,
		FileName:    fileName,
		StoragePath: path,
		SizeBytes:   size,
		ReceivedAt:  time.Now(),
	}
	app.UpsertDocument(doc)

	check, err := e.validator.Validate(ctx, doc, app)
	if err != nil {
		e.logger.WarnContext(ctx, "document validation unavailable, leaving document unverified",
			"application_id", applicationID, "doc_type", docType, "error", err)
		check = &domain.DocumentCheck{Verified: false, Reason: "validation unavailable"}
	}
	app.MarkDocumentVerified(docType, check.Verified, check.Reason)
	e.collector.RecordDocumentVerified()

	events := []domain.ApplicationEvent{e.documentEvent(app, docType)}

	// 处于待补材料中断时恢复授信评估；材料仍不齐会重新挂起
	reply := "Document received: " + docType + "."
	if app.Interrupt != nil && app.Interrupt.Kind == domain.InterruptDocumentUpload {
		app.ClearInterrupt()
		app.Stage = domain.StageUnderwriting
		driven, err := e.drive(ctx, app, "", &events)
		if err != nil {
			return nil, err
		}
		if driven != "" {
			reply = reply + " " + driven
		}
	}
	app.AppendMessage("assistant", reply)

	if err := e.repo.Save(ctx, app); err != nil {
		return nil, fmt.Errorf("checkpoint application %s: %w", applicationID, err)
	}
	e.publish(ctx, events)
	e.refreshPendingGauge(ctx)

	return e.newTurnResult(app, reply), nil
}

// GetState 返回申请检查点的只读投影
func (e *Engine) GetState(ctx context.Context, applicationID string) (*Snapshot, error) {
	app, err := e.repo.Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load application %s: %w", applicationID, err)
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}
	return NewSnapshot(app), nil
}

// Reset 以全新默认记录覆盖既有申请，用于重新开案
func (e *Engine) Reset(ctx context.Context, applicationID string) (*Snapshot, error) {
	unlock := e.locks.Lock(applicationID)
	defer unlock()

	app := domain.NewApplication(applicationID)
	if err := e.repo.Replace(ctx, app); err != nil {
		return nil, fmt.Errorf("reset application %s: %w", applicationID, err)
	}
	e.collector.RecordApplication()
	e.refreshPendingGauge(ctx)
	return NewSnapshot(app), nil
}

// ResendSanction 重发已批准申请的批贷函
func (e *Engine) ResendSanction(ctx context.Context, applicationID string) (*domain.SanctionLetter, error) {
	app, err := e.repo.Get(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load application %s: %w", applicationID, err)
	}
	if app == nil {
		return nil, domain.ErrApplicationNotFound
	}
	if app.Status != domain.StatusApproved || app.Sanction == nil {
		return nil, domain.ErrSanctionNotAvailable
	}
	return app.Sanction, nil
}

// terminalReply 终态申请的固定答复
func (e *Engine) terminalReply(app *domain.LoanApplication) string {
	switch app.Status {
	case domain.StatusApproved:
		return "You are already approved. Would you like me to resend your sanction letter?"
	case domain.StatusManualReview:
		return "Your application is under manual review. We will update you shortly."
	default:
		return fmt.Sprintf("Your application is already closed. Reason: %s", app.RejectionReason)
	}
}

// recordDecision 终态迁移的指标与事件
func (e *Engine) recordDecision(app *domain.LoanApplication, events *[]domain.ApplicationEvent) {
	switch app.Status {
	case domain.StatusApproved:
		e.collector.RecordDecision("approved")
		e.collector.RecordSanction()
		*events = append(*events, e.newEvent(app, domain.EventApplicationApproved, ""))
	case domain.StatusRejected:
		e.collector.RecordDecision("rejected")
		*events = append(*events, e.newEvent(app, domain.EventApplicationRejected, app.RejectionReason))
	case domain.StatusManualReview:
		e.collector.RecordDecision("manual_review")
		*events = append(*events, e.newEvent(app, domain.EventManualReview, ""))
	}
}

func (e *Engine) newEvent(app *domain.LoanApplication, typ domain.EventType, reason string) domain.ApplicationEvent {
	ev := domain.ApplicationEvent{
		Type:          typ,
		ApplicationID: app.ID,
		Stage:         app.Stage,
		Status:        app.Status,
		Reason:        reason,
		OccurredAt:    time.Now(),
	}
	if app.Sanction != nil {
		ev.SanctionRef = app.Sanction.Reference
	}
	if typ == domain.EventDocumentsRequested {
		for _, req := range app.RequestedDocuments {
			ev.Documents = append(ev.Documents, req.Type)
		}
	}
	return ev
}

func (e *Engine) documentEvent(app *domain.LoanApplication, docType string) domain.ApplicationEvent {
	return domain.ApplicationEvent{
		Type:          domain.EventDocumentReceived,
		ApplicationID: app.ID,
		Stage:         app.Stage,
		Status:        app.Status,
		Documents:     []string{docType},
		OccurredAt:    time.Now(),
	}
}

// publish 检查点落库成功后发布事件。发布失败只记录日志，不回滚本轮。
func (e *Engine) publish(ctx context.Context, events []domain.ApplicationEvent) {
	for _, ev := range events {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.logger.ErrorContext(ctx, "publish application event failed",
				"application_id", ev.ApplicationID, "event_type", string(ev.Type), "error", err)
		}
	}
}

func (e *Engine) refreshPendingGauge(ctx context.Context) {
	count, err := e.repo.CountPendingInterrupts(ctx)
	if err != nil {
		e.logger.WarnContext(ctx, "count pending interrupts failed", "error", err)
		return
	}
	e.collector.UpdatePendingInterrupts(count)
}

// newTurnResult 构建轮次响应
func (e *Engine) newTurnResult(app *domain.LoanApplication, reply string) *TurnResult {
	result := &TurnResult{
		ApplicationID:   app.ID,
		Reply:           reply,
		Status:          statusOf(app),
		Interrupt:       app.Interrupt,
		RejectionReason: app.RejectionReason,
		Snapshot:        NewSnapshot(app),
	}
	if app.Sanction != nil {
		result.SanctionRef = app.Sanction.Reference
	}
	return result
}
