package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gitlab.com/tozd/go/errors"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/executor"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/planner"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/source"
	"github.com/yuya-takeyama/listing-s3-sync/pkg/syncer"
)

// PlanResult represents the planned operations before execution
type PlanResult struct {
	Files   []PlanFile  `json:"files"`
	Summary PlanSummary `json:"summary"`
}

type PlanFile struct {
	Action string `json:"action"` // "create", "update", "delete"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

type PlanSummary struct {
	Create int `json:"create"`
	Update int `json:"update"`
	Delete int `json:"delete"`
}

// SyncResult represents the actual execution results
type SyncResult struct {
	Errors  []ErrorFile   `json:"errors"`
	Summary ResultSummary `json:"summary"`
}

type ErrorFile struct {
	Action string `json:"action"` // "download", "upload", "delete"
	Name   string `json:"name"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type ResultSummary struct {
	Source            int   `json:"source"`
	DestinationBefore int   `json:"destination_before"`
	Uploaded          int   `json:"uploaded"`
	Deleted           int   `json:"deleted"`
	Failed            int   `json:"failed"`
	BytesUploaded     int64 `json:"bytes_uploaded"`
}

func newPlanResult(cfg syncer.Config, plan planner.Plan) PlanResult {
	result := PlanResult{Files: []PlanFile{}}

	for _, item := range plan.Items {
		file := PlanFile{
			Target: formatS3Path(cfg.Bucket, item.Key),
			Reason: item.Reason,
		}
		switch item.Action {
		case planner.ActionUpload:
			file.Action = getUploadActionName(item.Reason)
			file.Source = source.FileURL(cfg.BaseURL, item.Name)
			if file.Action == "create" {
				result.Summary.Create++
			} else {
				result.Summary.Update++
			}
		case planner.ActionDelete:
			file.Action = "delete"
			result.Summary.Delete++
		}
		result.Files = append(result.Files, file)
	}
	return result
}

func writePlanResult(path string, cfg syncer.Config, plan planner.Plan) error {
	return writeJSON(path, newPlanResult(cfg, plan))
}

func newSyncResult(report syncer.Report, runErr error) SyncResult {
	result := SyncResult{
		Errors: []ErrorFile{},
		Summary: ResultSummary{
			Source:            report.Stats.SourceCount,
			DestinationBefore: report.Stats.DestinationCountBefore,
			Uploaded:          report.Stats.Uploaded,
			Deleted:           report.Stats.Deleted,
			Failed:            report.Stats.Failed,
			BytesUploaded:     report.Stats.BytesUploaded,
		},
	}
	for _, terr := range transferErrors(runErr) {
		result.Errors = append(result.Errors, ErrorFile{
			Action: terr.Op,
			Name:   terr.Name,
			Target: terr.Key,
			Error:  terr.Err.Error(),
		})
	}
	return result
}

func writeSyncResult(path string, result SyncResult) error {
	return writeJSON(path, result)
}

// transferErrors flattens joined errors into the per-file failures they hold.
func transferErrors(err error) []*executor.TransferError {
	if err == nil {
		return nil
	}
	var terr *executor.TransferError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*executor.TransferError
		for _, e := range joined.Unwrap() {
			out = append(out, transferErrors(e)...)
		}
		return out
	}
	if errors.As(err, &terr) {
		return []*executor.TransferError{terr}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Errorf("failed to write file: %w", err)
	}

	return nil
}

func getUploadActionName(reason string) string {
	if reason == planner.ReasonNewFile {
		return "create"
	}
	return "update"
}

func formatS3Path(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
