package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/analysis/aggregate"
	"github.com/clauselens/core/internal/modules/personalization/profile"
	"github.com/dop251/goja"
	"github.com/evanw/esbuild/pkg/api"
)

// Rules get a short leash; they run inline on the analysis path.
var ruleExecutionTimeout = 5 * time.Second

const ruleTimeoutReason = "alert-rule-timeout"

// ruleContext is the object handed to a rule, serialized to JSON and
// deep-frozen inside the VM so a rule cannot mutate shared state.
type ruleContext struct {
	Result   *aggregate.Result        `json:"result"`
	Profile  *profile.ComputedProfile `json:"profile"`
	Document *ruleDocument            `json:"document"`
	Analysis *ruleAnalysis            `json:"analysis"`
}

type ruleDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	SourceURL string `json:"sourceUrl"`
	WordCount int    `json:"wordCount"`
}

type ruleAnalysis struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	PassCount int    `json:"passCount"`
}

func ruleContextJSON(a *models.AnalysisModel, prof *profile.ComputedProfile, doc *models.DocumentModel) (string, error) {
	ctx := ruleContext{
		Result:  a.Result,
		Profile: prof,
		Analysis: &ruleAnalysis{
			ID:       a.ID,
			Provider: a.Provider,
		},
	}
	if a.Result != nil {
		ctx.Analysis.PassCount = a.Result.PassCount
	}
	if doc != nil {
		ctx.Document = &ruleDocument{
			ID:        doc.ID,
			Title:     doc.Title,
			Kind:      doc.Kind,
			SourceURL: doc.SourceURL,
			WordCount: doc.WordCount,
		}
	}

	raw, err := json.Marshal(ctx)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func compileRuleSource(source, name string) (string, error) {
	result := api.Transform(source, api.TransformOptions{
		Loader:     api.LoaderTS,
		Format:     api.FormatCommonJS,
		Target:     api.ES2020,
		Sourcefile: fmt.Sprintf("rules/%s.ts", name),
		Charset:    api.CharsetUTF8,
	})
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("transform failed: %s", result.Errors[0].Text)
	}
	return string(result.Code), nil
}

func (s *Service) compiledCode(rule *models.AlertRuleModel) (string, error) {
	if strings.TrimSpace(rule.Compiled) != "" {
		return rule.Compiled, nil
	}

	s.compiledMu.RLock()
	if cached, ok := s.compiled[rule.ID]; ok && cached.UpdatedAt.Equal(rule.UpdatedAt) {
		s.compiledMu.RUnlock()
		return cached.Code, nil
	}
	s.compiledMu.RUnlock()

	code, err := compileRuleSource(rule.Source, rule.Name)
	if err != nil {
		return "", err
	}

	s.compiledMu.Lock()
	s.compiled[rule.ID] = compiledRule{UpdatedAt: rule.UpdatedAt, Code: code}
	s.compiledMu.Unlock()

	return code, nil
}

// contextBootstrap parses the marshaled context and deep-freezes it. Freezing
// happens on plain JSON objects, so it holds for every nested value.
const contextBootstrap = `var __cl_context=(function deepFreeze(value){` +
	`if(value&&typeof value==='object'&&!Object.isFrozen(value)){` +
	`Object.freeze(value);` +
	`var keys=Object.keys(value);` +
	`for(var i=0;i<keys.length;i++){deepFreeze(value[keys[i]])}` +
	`}return value})(JSON.parse(__cl_context_json));` +
	`var context=__cl_context;`

// ruleExtractBootstrap finds the rule entry point: the default export, the
// module export itself, or a global function named rule. Candidates are
// checked for being callable, not merely truthy, so a bare script defining a
// global rule() is not shadowed by the empty module.exports object.
const ruleExtractBootstrap = `globalThis.__cl_rule=(function(){` +
	`var candidates=[` +
	`module.exports&&module.exports.default,` +
	`module.exports,` +
	`exports&&exports.default,` +
	`typeof rule==='function'?rule:null` +
	`];` +
	`for(var i=0;i<candidates.length;i++){` +
	`if(typeof candidates[i]==='function'){return candidates[i]}` +
	`}` +
	`return null})();` +
	`if(typeof globalThis.__cl_rule!=='function'){throw new Error('rule function is not defined')}`

func (s *Service) evaluateRule(rule *models.AlertRuleModel, ctxJSON string) (RuleOutcome, error) {
	code, err := s.compiledCode(rule)
	if err != nil {
		return RuleOutcome{}, err
	}

	vm := goja.New()
	timer := time.AfterFunc(ruleExecutionTimeout, func() {
		vm.Interrupt(ruleTimeoutReason)
	})
	defer timer.Stop()

	s.installRuleGlobals(vm, rule.Name)

	_ = vm.Set("__cl_context_json", ctxJSON)
	if _, err := vm.RunString(contextBootstrap); err != nil {
		return RuleOutcome{}, normalizeRuleError(err)
	}

	bootstrap := "var module={exports:{}}; var exports=module.exports;\n" +
		code +
		"\n" +
		ruleExtractBootstrap
	if _, err := vm.RunString(bootstrap); err != nil {
		return RuleOutcome{}, normalizeRuleError(err)
	}

	ruleFn, ok := goja.AssertFunction(vm.Get("__cl_rule"))
	if !ok {
		return RuleOutcome{}, errors.New("rule function is not callable")
	}

	value, err := ruleFn(goja.Undefined(), vm.Get("__cl_context"))
	if err != nil {
		return RuleOutcome{}, normalizeRuleError(err)
	}

	resolved, err := resolveRuleValue(value)
	if err != nil {
		return RuleOutcome{}, err
	}
	return parseRuleOutcome(resolved)
}

func (s *Service) installRuleGlobals(vm *goja.Runtime, ruleName string) {
	console := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, s.createRuleConsoleMethod(ruleName, level))
	}
	_ = vm.Set("console", console)
	_ = vm.Set("logger", console)
}

func (s *Service) createRuleConsoleMethod(ruleName, level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if s.logger == nil {
			return goja.Undefined()
		}
		parts := make([]string, 0, len(call.Arguments)+1)
		parts = append(parts, fmt.Sprintf("[rule:%s]", ruleName))
		for _, arg := range call.Arguments {
			parts = append(parts, ruleConsoleValueToString(exportRuleValue(arg)))
		}
		line := strings.Join(parts, " ")
		switch level {
		case "warn":
			s.logger.Warn(line)
		case "error":
			s.logger.Error(line)
		default:
			s.logger.Info(line)
		}
		return goja.Undefined()
	}
}

func ruleConsoleValueToString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case error:
		return x.Error()
	default:
		b, err := json.Marshal(x)
		if err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", x)
	}
}

func resolveRuleValue(value goja.Value) (interface{}, error) {
	if value == nil || goja.IsNull(value) || goja.IsUndefined(value) {
		return nil, nil
	}

	if p, ok := value.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStatePending:
			return nil, errors.New("rule returned a pending promise")
		case goja.PromiseStateRejected:
			return nil, errors.New(ruleErrorMessage(p.Result()))
		default:
			return resolveRuleValue(p.Result())
		}
	}

	return value.Export(), nil
}

func parseRuleOutcome(v interface{}) (RuleOutcome, error) {
	switch x := v.(type) {
	case nil:
		return RuleOutcome{}, nil
	case bool:
		return RuleOutcome{Match: x}, nil
	case map[string]interface{}:
		return RuleOutcome{
			Match:  outcomeBool(x["match"]),
			Title:  strings.TrimSpace(outcomeString(x["title"])),
			Detail: strings.TrimSpace(outcomeString(x["detail"])),
		}, nil
	default:
		return RuleOutcome{}, fmt.Errorf("rule must return an object or boolean, got %T", v)
	}
}

func normalizeRuleError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if interrupted.Value() == ruleTimeoutReason {
			return errRuleTimeout
		}
		return errors.New("rule evaluation interrupted")
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return errors.New(ruleErrorMessage(exception.Value()))
	}

	return err
}

func ruleErrorMessage(value goja.Value) string {
	if value == nil || goja.IsNull(value) || goja.IsUndefined(value) {
		return "unknown rule error"
	}

	switch v := value.Export().(type) {
	case string:
		return v
	case error:
		return v.Error()
	case map[string]interface{}:
		if msg := outcomeString(v["message"]); msg != "" {
			return msg
		}
	}
	// Error instances keep message non-enumerable; toString carries it.
	return value.String()
}

func exportRuleValue(value goja.Value) interface{} {
	if value == nil || goja.IsNull(value) || goja.IsUndefined(value) {
		return nil
	}
	return value.Export()
}

func outcomeString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func outcomeBool(v interface{}) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes":
			return true
		}
		return false
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return false
	}
}
