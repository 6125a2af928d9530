package schema

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ReportJSONSchema is the JSON Schema of a serialized AnalysisReport.
const ReportJSONSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/huangsam/triad/analysis-report.schema.json",
  "title": "Triad Analysis Report",
  "type": "object",
  "required": ["schema_version", "id", "scan_timestamp", "target_path", "files_scanned",
               "findings", "category_counts", "category_scores", "health_score",
               "degraded", "conflicts", "agent_runs"],
  "properties": {
    "schema_version": { "type": "string" },
    "id": { "type": "string", "minLength": 1 },
    "scan_timestamp": { "type": "string", "format": "date-time" },
    "target_path": { "type": "string" },
    "files_scanned": { "type": "integer", "minimum": 0 },
    "files_by_module": {
      "type": "object",
      "additionalProperties": { "type": "integer", "minimum": 0 }
    },
    "findings": { "type": "array", "items": { "$ref": "#/$defs/Finding" } },
    "category_counts": {
      "type": "object",
      "additionalProperties": { "type": "integer", "minimum": 0 }
    },
    "category_scores": {
      "type": "object",
      "additionalProperties": { "$ref": "#/$defs/CategoryScore" }
    },
    "health_score": { "type": ["number", "null"], "minimum": 0, "maximum": 100 },
    "degraded": { "type": "boolean" },
    "notes": { "type": "array", "items": { "type": "string" } },
    "conflicts": { "type": "array", "items": { "$ref": "#/$defs/Conflict" } },
    "agent_runs": { "type": "array", "items": { "$ref": "#/$defs/AgentRun" } },
    "complexity": { "type": "array", "items": { "$ref": "#/$defs/ComplexityStat" } }
  },
  "$defs": {
    "Severity": { "enum": ["LOW", "MEDIUM", "HIGH", "URGENT"] },
    "Category": {
      "enum": ["DI_VIOLATION", "SECURITY", "UX", "FILE_ORG", "PERFORMANCE", "DOCUMENTATION"]
    },
    "Status": { "enum": ["completed", "errored", "timed_out"] },
    "Finding": {
      "type": "object",
      "required": ["id", "agent", "rule", "severity", "category", "file", "message", "confidence"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "agent": { "type": "string" },
        "rule": { "type": "string" },
        "severity": { "$ref": "#/$defs/Severity" },
        "category": { "$ref": "#/$defs/Category" },
        "file": { "type": "string" },
        "line": { "type": "integer", "minimum": 1 },
        "message": { "type": "string" },
        "remediation": {
          "type": "object",
          "required": ["action", "description"],
          "properties": {
            "action": { "type": "string" },
            "description": { "type": "string" },
            "example": { "type": "string" }
          }
        },
        "confidence": { "type": "number", "minimum": 0, "maximum": 1 }
      }
    },
    "CategoryScore": {
      "type": "object",
      "required": ["score", "status", "findings", "density", "weight"],
      "properties": {
        "score": { "type": ["number", "null"], "minimum": 0, "maximum": 100 },
        "status": { "$ref": "#/$defs/Status" },
        "findings": { "type": "integer", "minimum": 0 },
        "density": { "type": "number", "minimum": 0 },
        "weight": { "type": "number", "minimum": 0, "maximum": 1 }
      }
    },
    "Conflict": {
      "type": "object",
      "required": ["finding_a", "finding_b", "file", "action_a", "action_b", "reason"],
      "properties": {
        "finding_a": { "type": "string" },
        "finding_b": { "type": "string" },
        "file": { "type": "string" },
        "line": { "type": "integer" },
        "action_a": { "type": "string" },
        "action_b": { "type": "string" },
        "reason": { "type": "string" }
      }
    },
    "AgentRun": {
      "type": "object",
      "required": ["agent", "status", "findings", "duration_ms"],
      "properties": {
        "agent": { "type": "string" },
        "status": { "$ref": "#/$defs/Status" },
        "findings": { "type": "integer", "minimum": 0 },
        "duration_ms": { "type": "integer", "minimum": 0 },
        "error": { "type": "string" }
      }
    },
    "ComplexityStat": {
      "type": "object",
      "required": ["file", "function", "line", "complexity"],
      "properties": {
        "file": { "type": "string" },
        "function": { "type": "string" },
        "line": { "type": "integer" },
        "complexity": { "type": "integer", "minimum": 1 }
      }
    }
  }
}`

var (
	reportSchemaOnce sync.Once
	reportSchema     *jsonschema.Schema
	reportSchemaErr  error
)

func compiledReportSchema() (*jsonschema.Schema, error) {
	reportSchemaOnce.Do(func() {
		sch, err := jsonschema.UnmarshalJSON(strings.NewReader(ReportJSONSchema))
		if err != nil {
			reportSchemaErr = fmt.Errorf("failed to parse report schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("report.json", sch); err != nil {
			reportSchemaErr = fmt.Errorf("failed to add report schema: %w", err)
			return
		}
		reportSchema, reportSchemaErr = compiler.Compile("report.json")
	})
	return reportSchema, reportSchemaErr
}

// ValidateReportDocument checks a serialized AnalysisReport against ReportJSONSchema.
func ValidateReportDocument(data []byte) error {
	sch, err := compiledReportSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse report document: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("report document does not conform to schema: %w", err)
	}
	return nil
}
