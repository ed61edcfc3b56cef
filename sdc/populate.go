// Package sdc pre-fills questionnaires from a bundle of patient context,
// following the structured data capture initialExpression extension: items
// carrying a FHIRPath expression get their answer from evaluating that
// expression against the context bundle.
package sdc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SanteonNL/medex/negotiator/lib/debug"
	"github.com/SanteonNL/medex/negotiator/lib/fhirpath"
	"github.com/SanteonNL/medex/negotiator/lib/logging"
	lib_otel "github.com/SanteonNL/medex/negotiator/lib/otel"
	"github.com/SanteonNL/medex/negotiator/lib/to"
	"github.com/google/uuid"
	"github.com/zorgbijjou/golang-fhir-models/fhir-models/fhir"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sdc"

// InitialExpressionURL identifies the extension that carries the FHIRPath
// expression an item is pre-filled from.
const InitialExpressionURL = "http://hl7.org/fhir/uv/sdc/StructureDefinition/sdc-questionnaire-initialExpression"

const fhirPathLanguage = "text/fhirpath"

var ErrQuestionnaireNotFound = errors.New("questionnaire not found")

// Engine populates questionnaire responses. Population is best-effort per
// item: an item whose expression cannot be parsed, evaluated or converted is
// left unanswered, only a missing questionnaire fails the operation.
type Engine struct {
	tracer trace.Tracer
}

func NewEngine() *Engine {
	return &Engine{
		tracer: otel.Tracer(tracerName),
	}
}

// Populate builds an in-progress QuestionnaireResponse for the questionnaire,
// answering items from the context bundle. Items without an expression fall
// back to their declared initial value. The response mirrors the
// questionnaire's item tree: groups and unanswered questions appear as empty
// items, only display items are left out.
func (e *Engine) Populate(ctx context.Context, questionnaire *fhir.Questionnaire, contextBundle map[string]interface{}) (*fhir.QuestionnaireResponse, error) {
	ctx, span := e.tracer.Start(ctx, debug.GetFullCallerName(),
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if questionnaire == nil {
		return nil, lib_otel.Error(span, ErrQuestionnaireNotFound)
	}
	span.AddEvent(lib_otel.PopulationEvaluate)

	result := &fhir.QuestionnaireResponse{
		Id:            to.Ptr(uuid.NewString()),
		Questionnaire: questionnaire.Url,
		Status:        fhir.QuestionnaireResponseStatusInProgress,
	}
	if result.Questionnaire == nil && questionnaire.Id != nil {
		result.Questionnaire = to.Ptr("Questionnaire/" + *questionnaire.Id)
	}
	if result.Questionnaire != nil {
		span.SetAttributes(attribute.String(lib_otel.PopulationQuestionnaire, *result.Questionnaire))
	}

	populator := &itemPopulator{ctx: ctx, bundle: contextBundle, span: span}
	result.Item = populator.populateItems(questionnaire.Item)

	span.SetAttributes(
		attribute.Int(lib_otel.PopulationItemCount, populator.itemCount),
		attribute.Int(lib_otel.PopulationAnswerCount, populator.answerCount),
	)
	span.AddEvent(lib_otel.PopulationComplete)
	return result, nil
}

type itemPopulator struct {
	ctx         context.Context
	bundle      map[string]interface{}
	span        trace.Span
	itemCount   int
	answerCount int
}

func (p *itemPopulator) populateItems(items []fhir.QuestionnaireItem) []fhir.QuestionnaireResponseItem {
	var result []fhir.QuestionnaireResponseItem
	for _, item := range items {
		p.itemCount++
		if item.Type == fhir.QuestionnaireItemTypeDisplay {
			continue
		}
		responseItem := fhir.QuestionnaireResponseItem{
			LinkId: item.LinkId,
			Text:   item.Text,
			Item:   p.populateItems(item.Item),
		}
		if item.Type != fhir.QuestionnaireItemTypeGroup {
			if answer := p.answerFor(item); answer != nil {
				responseItem.Answer = []fhir.QuestionnaireResponseItemAnswer{*answer}
				p.answerCount++
			}
		}
		result = append(result, responseItem)
	}
	return result
}

// answerFor evaluates the item's initial expression against the bundle and
// converts the first result to an answer of the item's type. An item without
// an expression is answered from its first declared initial value, if any.
func (p *itemPopulator) answerFor(item fhir.QuestionnaireItem) *fhir.QuestionnaireResponseItemAnswer {
	expression := initialExpression(item)
	if expression == nil {
		return answerFromInitial(item)
	}
	results, err := fhirpath.Evaluate(p.bundle, *expression, nil)
	if err != nil {
		p.itemFailed(item, *expression, err)
		return nil
	}
	if len(results) == 0 {
		return nil
	}
	answer, err := CreateAnswerForType(item.Type, results[0])
	if err != nil {
		p.itemFailed(item, *expression, err)
		return nil
	}
	return answer
}

func (p *itemPopulator) itemFailed(item fhir.QuestionnaireItem, expression string, err error) {
	p.span.AddEvent(lib_otel.PopulationEvaluateItemFailed)
	slog.WarnContext(p.ctx, "Could not pre-fill questionnaire item",
		slog.String(logging.FieldLinkID, item.LinkId),
		slog.String(logging.FieldExpression, expression),
		slog.String(logging.FieldError, err.Error()))
}

// initialExpression returns the item's FHIRPath initial expression, or nil
// when the item carries none in a language this engine evaluates.
func initialExpression(item fhir.QuestionnaireItem) *string {
	for _, extension := range item.Extension {
		if extension.Url != InitialExpressionURL {
			continue
		}
		if extension.ValueExpression == nil || extension.ValueExpression.Expression == nil {
			continue
		}
		if language := extension.ValueExpression.Language; language != "" && language != fhirPathLanguage {
			continue
		}
		return extension.ValueExpression.Expression
	}
	return nil
}

func answerFromInitial(item fhir.QuestionnaireItem) *fhir.QuestionnaireResponseItemAnswer {
	if len(item.Initial) == 0 {
		return nil
	}
	initial := item.Initial[0]
	answer := fhir.QuestionnaireResponseItemAnswer{
		ValueBoolean:    initial.ValueBoolean,
		ValueDecimal:    initial.ValueDecimal,
		ValueInteger:    initial.ValueInteger,
		ValueDate:       initial.ValueDate,
		ValueDateTime:   initial.ValueDateTime,
		ValueTime:       initial.ValueTime,
		ValueString:     initial.ValueString,
		ValueUri:        initial.ValueUri,
		ValueAttachment: initial.ValueAttachment,
		ValueCoding:     initial.ValueCoding,
		ValueQuantity:   initial.ValueQuantity,
		ValueReference:  initial.ValueReference,
	}
	if answerIsEmpty(answer) {
		return nil
	}
	return &answer
}

func answerIsEmpty(answer fhir.QuestionnaireResponseItemAnswer) bool {
	return answer.ValueBoolean == nil &&
		answer.ValueDecimal == nil &&
		answer.ValueInteger == nil &&
		answer.ValueDate == nil &&
		answer.ValueDateTime == nil &&
		answer.ValueTime == nil &&
		answer.ValueString == nil &&
		answer.ValueUri == nil &&
		answer.ValueAttachment == nil &&
		answer.ValueCoding == nil &&
		answer.ValueQuantity == nil &&
		answer.ValueReference == nil
}
