package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/iabetor/speech-engine/internal/database"
	"github.com/iabetor/speech-engine/internal/logger"
	"github.com/iabetor/speech-engine/internal/tts"
)

func newSpeakCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "speak <文本>",
		Short: "合成并通过扬声器播放",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return a.synthesize(cmd.Context(), "speak", text, "", func(ctx context.Context, p tts.Provider) error {
				return p.Speak(ctx, text)
			})
		},
	}
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <文本> <文件>",
		Short: "合成并保存为音频文件",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, file := args[0], args[1]
			err := a.synthesize(cmd.Context(), "save", text, file, func(ctx context.Context, p tts.Provider) error {
				return p.Save(ctx, text, file)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已保存到 %s\n", file)
			return nil
		},
	}
}

func newVoicesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "列出当前服务的可用音色",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newProvider(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			voices, err := p.Voices(cmd.Context())
			if err != nil {
				return err
			}
			current := p.Voice()
			for _, v := range voices {
				marker := " "
				if v == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, v)
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看最近的合成记录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.History.Disabled() {
				return fmt.Errorf("历史记录已关闭 (history.db_path = \"-\")")
			}
			db, err := openHistory(a.cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "暂无记录")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "时间\t服务\t音色\t操作\t字数\t输出\t状态")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					e.Provider, e.Voice, e.Op, e.Chars, e.Output, e.Status)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "显示条数")
	return cmd
}

// synthesize 创建服务、应用覆盖参数、执行 run，并记录历史。
func (a *app) synthesize(ctx context.Context, op, text, output string, run func(context.Context, tts.Provider) error) error {
	p, err := newProvider(ctx, a.cfg)
	if err != nil {
		a.record(ctx, database.Entry{Provider: a.cfg.Provider, Op: op, Output: output, Chars: utf8.RuneCountInString(text), Status: err.Error()})
		return err
	}
	defer p.Close()

	if err = applyOverrides(p, a.voice, a.speed, a.pitch); err == nil {
		err = run(ctx, p)
	}
	status := "ok"
	if err != nil {
		status = err.Error()
	}
	a.record(ctx, database.Entry{
		Provider: p.Name(),
		Voice:    p.Voice(),
		Op:       op,
		Output:   output,
		Chars:    utf8.RuneCountInString(text),
		Status:   status,
	})
	return err
}

// record 写入历史；失败只记日志，不影响命令结果。
func (a *app) record(ctx context.Context, e database.Entry) {
	if a.cfg.History.Disabled() {
		return
	}
	db, err := openHistory(a.cfg.History.DBPath)
	if err != nil {
		logger.Warnf("[main] 打开历史库失败: %v", err)
		return
	}
	defer db.Close()

	if _, err := db.Record(context.WithoutCancel(ctx), e); err != nil {
		logger.Warnf("[main] 记录历史失败: %v", err)
	}
}

func openHistory(path string) (*database.DB, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
