// Package installer creates and drops the physical engine objects backing
// reference tables and UDFs, under the naming scheme that keeps logical
// names from colliding across webhooks.
package installer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"webhookgw.io/gateway/internal/catalog"
	"webhookgw.io/gateway/internal/engine"
	apperrors "webhookgw.io/gateway/internal/pkg/errors"
	"webhookgw.io/gateway/internal/udf"
)

// Installer owns the lifecycle of physical reference tables and scalar
// functions, plus the pooled Lua runtimes backing registered UDFs.
type Installer struct {
	eng *engine.Handle
	cat *catalog.Catalog

	mu       sync.Mutex
	runtimes map[string]*udf.Runtime // physical function name -> runtime
}

// New wraps an engine handle and catalog as an Installer.
func New(eng *engine.Handle, cat *catalog.Catalog) *Installer {
	return &Installer{
		eng:      eng,
		cat:      cat,
		runtimes: make(map[string]*udf.Runtime),
	}
}

// UploadReferenceTable derives the physical table name, (re)loads the CSV
// data, and records catalog metadata. Re-uploading the same logical name
// truncates and replaces the existing table.
func (ins *Installer) UploadReferenceTable(ctx context.Context, webhookID, logicalName, description string, header []string, rows [][]string) (*catalog.ReferenceTable, error) {
	if !IsSafeIdentifier(logicalName) {
		return nil, apperrors.ErrInvalidArtifactName(logicalName)
	}
	if _, err := ins.cat.GetWebhook(ctx, webhookID); err != nil {
		return nil, err
	}

	physicalName := ReferenceTablePhysicalName(webhookID, logicalName)
	if err := ins.eng.BulkLoadCSV(ctx, physicalName, header, rows); err != nil {
		return nil, err
	}

	return ins.cat.RecordReferenceTable(ctx, webhookID, logicalName, description, physicalName)
}

// DeleteReferenceTable drops the physical table (tolerating it already
// being absent) then removes the catalog row.
func (ins *Installer) DeleteReferenceTable(ctx context.Context, id string) error {
	rt, err := ins.cat.GetReferenceTable(ctx, id)
	if err != nil {
		return err
	}
	if err := ins.eng.DropTable(ctx, rt.PhysicalName); err != nil {
		return err
	}
	return ins.cat.DeleteReferenceTableRow(ctx, id)
}

// RegisterUDF derives the physical function name, compiles sourceCode in
// the Lua runtime, registers it as a scalar function in the engine, and
// records catalog metadata. paramTypes/returnType default to text when nil.
func (ins *Installer) RegisterUDF(ctx context.Context, webhookID, functionName, sourceCode string, paramTypes []udf.ParamType, returnType udf.ParamType) (*catalog.UDF, error) {
	if !IsSafeIdentifier(functionName) {
		return nil, apperrors.ErrInvalidArtifactName(functionName)
	}
	if _, err := ins.cat.GetWebhook(ctx, webhookID); err != nil {
		return nil, err
	}

	physicalName := UDFPhysicalName(webhookID, functionName)
	if err := ins.installUDF(ctx, physicalName, functionName, sourceCode, paramTypes, returnType); err != nil {
		return nil, err
	}

	return ins.cat.RecordUDF(ctx, webhookID, functionName, sourceCode, physicalName, serializeParamTypes(paramTypes), string(returnType))
}

// RehydrateUDF re-compiles and re-registers a previously recorded UDF
// against the engine without touching catalog metadata. Scalar functions
// registered through sql.Conn.Raw do not survive a process restart, so a
// fresh engine handle needs every catalog UDF row replayed back into it
// before the engine can serve that UDF again, with whatever type hints it
// was originally registered with.
func (ins *Installer) RehydrateUDF(ctx context.Context, u *catalog.UDF) error {
	return ins.installUDF(ctx, u.PhysicalName, u.LogicalName, u.SourceText, parseParamTypes(u.ParamTypes), udf.ParamType(u.ReturnType))
}

// serializeParamTypes renders paramTypes for catalog storage as a
// comma-separated list, matching parseParamTypes.
func serializeParamTypes(paramTypes []udf.ParamType) string {
	if len(paramTypes) == 0 {
		return ""
	}
	parts := make([]string, len(paramTypes))
	for i, pt := range paramTypes {
		parts[i] = string(pt)
	}
	return strings.Join(parts, ",")
}

// parseParamTypes reverses serializeParamTypes. An empty string yields a
// nil slice, which installUDF defaults to all-text.
func parseParamTypes(s string) []udf.ParamType {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]udf.ParamType, len(parts))
	for i, p := range parts {
		out[i] = udf.ParamType(p)
	}
	return out
}

func (ins *Installer) installUDF(ctx context.Context, physicalName, functionName, sourceCode string, paramTypes []udf.ParamType, returnType udf.ParamType) error {
	compiled, err := udf.Compile(sourceCode, functionName)
	if err != nil {
		return err
	}
	if returnType == "" {
		returnType = udf.TypeText
	}
	if len(paramTypes) == 0 {
		paramTypes = make([]udf.ParamType, compiled.Arity)
		for i := range paramTypes {
			paramTypes[i] = udf.TypeText
		}
	}

	runtime := udf.NewRuntime(compiled)

	trampoline := func(args ...any) (any, error) {
		return runtime.Call(args, paramTypes, returnType)
	}
	if err := ins.eng.RegisterScalarFunction(ctx, physicalName, compiled.Arity, trampoline); err != nil {
		runtime.Close()
		return err
	}

	ins.mu.Lock()
	if old, ok := ins.runtimes[physicalName]; ok {
		old.Close()
	}
	ins.runtimes[physicalName] = runtime
	ins.mu.Unlock()
	return nil
}

// DeleteUDF drops the physical scalar function (tolerating it already being
// absent), releases its runtime, and removes the catalog row.
func (ins *Installer) DeleteUDF(ctx context.Context, id string) error {
	udfRow, err := ins.cat.GetUDF(ctx, id)
	if err != nil {
		return err
	}
	if err := ins.eng.DropScalarFunction(ctx, udfRow.PhysicalName); err != nil {
		return err
	}

	ins.mu.Lock()
	if runtime, ok := ins.runtimes[udfRow.PhysicalName]; ok {
		runtime.Close()
		delete(ins.runtimes, udfRow.PhysicalName)
	}
	ins.mu.Unlock()

	return ins.cat.DeleteUDFRow(ctx, id)
}

// DeleteWebhookCascade drops every physical reference table and UDF owned
// by webhookID, then deletes their catalog rows, then the webhook row
// itself. Engine objects are dropped before metadata so a mid-operation
// crash leaves at most catalog rows whose physical object is already gone;
// nothing removes such rows automatically.
func (ins *Installer) DeleteWebhookCascade(ctx context.Context, webhookID string) error {
	tables, err := ins.cat.ListReferenceTables(ctx, webhookID)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if err := ins.DeleteReferenceTable(ctx, t.ID); err != nil {
			return fmt.Errorf("delete reference table %s: %w", t.LogicalName, err)
		}
	}

	udfs, err := ins.cat.ListUDFs(ctx, webhookID)
	if err != nil {
		return err
	}
	for _, u := range udfs {
		if err := ins.DeleteUDF(ctx, u.ID); err != nil {
			return fmt.Errorf("delete udf %s: %w", u.LogicalName, err)
		}
	}

	return ins.cat.DeleteWebhookRow(ctx, webhookID)
}

// RegisteredUDFNames returns the physical names of every UDF currently
// registered in the engine. Scalar functions registered through
// sql.Conn.Raw are connection-level and not enumerable via sqlite_master,
// so the installer's runtime map is the source of truth a reconciler must
// consult for UDF orphan detection (reference tables remain ordinary
// tables and are enumerable through engine.ListObjects).
func (ins *Installer) RegisteredUDFNames() []string {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	names := make([]string, 0, len(ins.runtimes))
	for name := range ins.runtimes {
		names = append(names, name)
	}
	return names
}
