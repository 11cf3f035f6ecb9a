// internal/workers/resolve-product/handler.go
package resolveproduct

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sentiment-workers/internal/common/errors"
	"sentiment-workers/internal/common/logger"
	"sentiment-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "resolve-product"

	// DefaultCanonicalPattern matches /<digits>.<suffix> at the end of the
	// path, optionally followed by a query string.
	DefaultCanonicalPattern = `/(\d+)\.[A-Za-z]\w*(?:\?|$)`
)

var productIDRe = regexp.MustCompile(`^\d+$`)

// Completer is the chat-completions surface of the resolution oracle.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Handler struct {
	config      *Config
	oracle      Completer
	canonicalRe *regexp.Regexp
	errHandler  *errors.ErrorHandler
	logger      logger.Logger
}

func NewHandler(config *Config, oracle Completer, log logger.Logger) (*Handler, error) {
	pattern := config.CanonicalPattern
	if pattern == "" {
		pattern = DefaultCanonicalPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid canonical pattern %q: %w", pattern, err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		oracle:      oracle,
		canonicalRe: re,
		errHandler:  errors.NewErrorHandler(l),
		logger:      l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job,
			errors.NewInvalidRunInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	start := time.Now()
	output, err := h.execute(ctx, &input)
	metrics.StageDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		code := "INTERNAL_ERROR"
		if stdErr, ok := err.(*errors.StandardError); ok {
			code = string(stdErr.Code)
		}
		metrics.StageFailed.WithLabelValues(TaskType, code).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	metrics.StageCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	// A directly submitted numeric product id skips resolution entirely.
	if input.ProductID != "" {
		if !productIDRe.MatchString(input.ProductID) {
			return nil, errors.NewInvalidRunInputError(
				fmt.Sprintf("productId %q is not numeric", input.ProductID))
		}
		return &Output{
			ProductID:    input.ProductID,
			CanonicalURL: fmt.Sprintf(h.config.ProductURLTemplate, input.ProductID),
		}, nil
	}

	// Cheap path: the id is already in the URL path.
	if m := h.canonicalRe.FindStringSubmatch(input.InputURL); m != nil {
		canonical := strings.SplitN(input.InputURL, "?", 2)[0]
		h.logger.Info("resolved identifier from canonical URL", map[string]interface{}{
			"productId": m[1],
		})
		return &Output{ProductID: m[1], CanonicalURL: canonical}, nil
	}

	return h.resolveViaOracle(ctx, input.InputURL)
}

// resolveViaOracle asks the browsing oracle for strict JSON. Any failure,
// from transport up to malformed identifiers, resolves to
// UNRESOLVABLE_IDENTIFIER with the upstream text preserved; no stand-in
// identifiers are ever substituted.
func (h *Handler) resolveViaOracle(ctx context.Context, inputURL string) (*Output, error) {
	reply, err := h.oracle.Complete(ctx, oracleSystemPrompt, h.buildPrompt(inputURL))
	if err != nil {
		return nil, errors.NewUnresolvableIdentifierError(inputURL, err.Error())
	}

	var parsed oracleReply
	if err := json.Unmarshal([]byte(reply), &parsed); err != nil {
		return nil, errors.NewUnresolvableIdentifierError(inputURL,
			fmt.Sprintf("oracle returned non-JSON response: %s", reply))
	}
	if parsed.Error != "" {
		return nil, errors.NewUnresolvableIdentifierError(inputURL, parsed.Error)
	}
	if !productIDRe.MatchString(parsed.ProductID) {
		return nil, errors.NewUnresolvableIdentifierError(inputURL,
			fmt.Sprintf("oracle returned invalid product id %q", parsed.ProductID))
	}

	canonical := parsed.CanonicalURL
	if canonical == "" {
		canonical = fmt.Sprintf(h.config.ProductURLTemplate, parsed.ProductID)
	}

	h.logger.Info("resolved identifier via oracle", map[string]interface{}{
		"productId": parsed.ProductID,
	})
	return &Output{ProductID: parsed.ProductID, CanonicalURL: canonical}, nil
}

const oracleSystemPrompt = "You are a web scraper specialist. Extract product identifiers " +
	"from retail product URLs by browsing the page. Return only JSON with the product id " +
	"and canonical URL."

func (h *Handler) buildPrompt(inputURL string) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Please browse this product URL and extract the numeric product id: %s", inputURL))
	parts = append(parts, "\nLook for:")
	parts = append(parts, "1. The id in the URL path (like /site/.../123456.p)")
	parts = append(parts, "2. The product id in JSON data on the page")
	parts = append(parts, "3. Any redirect that reveals the canonical URL")
	parts = append(parts, "\nReturn only JSON in this exact format:")
	parts = append(parts, `{"productId": "123456", "canonicalUrl": "https://www.example.com/site/.../123456.p"}`)
	parts = append(parts, "\nIf you cannot find a product id, return:")
	parts = append(parts, `{"error": "Could not extract product id"}`)

	return strings.Join(parts, "\n")
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// Resolve runs the stage directly, outside a Zeebe job context.
func (h *Handler) Resolve(ctx context.Context, inputURL, productID string) (string, string, error) {
	out, err := h.execute(ctx, &Input{InputURL: inputURL, ProductID: productID})
	if err != nil {
		return "", "", err
	}
	return out.ProductID, out.CanonicalURL, nil
}
