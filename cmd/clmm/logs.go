package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clmm/internal/dex"
	"clmm/internal/model"
	"clmm/internal/storage"
)

type logsSummary struct {
	Total   int `json:"total"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func newExportLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-logs",
		Short: "Render the event journal as V3 pool logs",
		RunE:  runExportLogs,
	}
	cmd.Flags().String("logs-out", "", "output log records JSONL")
	cmd.Flags().Uint64("chain-id", 0, "chain id stamped on the records")
	return cmd
}

func runExportLogs(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.LogsOut == "" {
		return fmt.Errorf("logs-out path is required")
	}

	encoder, err := dex.NewV3PoolDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	out, err := newJSONLWriter(cfg.LogsOut, false)
	if err != nil {
		return err
	}
	defer out.Close()

	logger.Info("export start",
		zap.String("journal", cfg.Journal),
		zap.String("out", cfg.LogsOut),
		zap.Uint64("chain_id", cfg.ChainID),
	)

	var summary logsSummary
	err = storage.ReadEventRecords(cfg.Journal, func(record model.EventRecord) error {
		summary.Total++
		event, err := dex.TypedEvent(record)
		if err != nil {
			summary.Failed++
			logger.Warn("skip journal record", zap.Uint64("seq", record.Seq), zap.Error(err))
			return nil
		}
		log, err := encoder.Encode(event, cfg.ChainID)
		if err != nil {
			summary.Failed++
			logger.Warn("encode journal record", zap.Uint64("seq", record.Seq), zap.Error(err))
			return nil
		}
		if err := out.Write(log); err != nil {
			return err
		}
		summary.Written++
		return nil
	})
	if err != nil {
		return err
	}
	if err := out.writer.Flush(); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}

	logger.Info("export complete",
		zap.Int("total", summary.Total),
		zap.Int("written", summary.Written),
		zap.Int("failed", summary.Failed),
	)
	return printJSON(cmd, summary)
}

func newDecodeLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode-logs",
		Short: "Decode V3 pool logs back into journal events",
		RunE:  runDecodeLogs,
	}
	cmd.Flags().String("in", "", "input log records JSONL (defaults to --logs-out)")
	cmd.Flags().String("out", "", "output events JSONL")
	cmd.Flags().String("errors", "", "decode errors JSONL")
	cmd.Flags().String("topic0-map", "", "topic0 aliases, e.g. 0xabc=Swap,0xdef=Mint")
	return cmd
}

func runDecodeLogs(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		in = cfg.LogsOut
	}
	outPath, _ := cmd.Flags().GetString("out")
	if in == "" {
		return fmt.Errorf("input path is required")
	}
	if outPath == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.DecodeErrors == "" {
		return fmt.Errorf("errors path is required")
	}

	decoder, err := dex.NewV3PoolDecoder(dex.DecoderConfig{Topic0Map: cfg.Topic0Map})
	if err != nil {
		return err
	}

	out, err := newJSONLWriter(outPath, false)
	if err != nil {
		return err
	}
	defer out.Close()

	errWriter, err := newJSONLWriter(cfg.DecodeErrors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", in),
		zap.String("out", outPath),
		zap.String("errors", cfg.DecodeErrors),
	)

	var summary logsSummary
	err = storage.ReadLogRecords(in, func(record model.LogRecord) error {
		summary.Total++
		if len(record.Topics) == 0 {
			summary.Failed++
			return errWriter.Write(decodeErrorFromRecord(record, fmt.Errorf("missing topic0")))
		}
		if !decoder.CanDecode(record.Topics[0]) {
			summary.Skipped++
			return nil
		}
		event, err := decoder.Decode(record)
		if err != nil {
			summary.Failed++
			return errWriter.Write(decodeErrorFromRecord(record, err))
		}
		if err := out.Write(event); err != nil {
			return err
		}
		summary.Written++
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.Int("total", summary.Total),
		zap.Int("decoded", summary.Written),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return printJSON(cmd, summary)
}
