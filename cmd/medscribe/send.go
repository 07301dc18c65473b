package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/pcameron/medscribe/internal/api"
	"github.com/pcameron/medscribe/internal/chat"
	"github.com/pcameron/medscribe/internal/session"
)

func newSendCmd() *cobra.Command {
	var (
		taskName   string
		grammar    string
		template   string
		reportType string
		attach     []string
	)

	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return guard(session.RequireAuthenticated)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			files, closeAll, err := resolveAttachments(attach)
			if err != nil {
				return err
			}
			defer closeAll()

			pipeline := chat.NewPipeline(client, sessions)
			opts := chat.Options{
				TranscriptionType: reportType,
				OutputTemplate:    template,
				GrammarRules:      grammar,
			}
			if err := pipeline.Send(cmd.Context(), text, opts, files, taskName); err != nil {
				return err
			}

			fmt.Print(out.Transcript(pipeline.Conversation().Messages()))
			if notice := pipeline.Notice(); notice != "" {
				fmt.Fprintln(os.Stderr, out.Notice(notice))
				return fmt.Errorf("send failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&taskName, "task", "", "task name routed with the message")
	cmd.Flags().StringVar(&grammar, "grammar", "", "grammar requirements appended to the message")
	cmd.Flags().StringVar(&template, "template", "", "output template the reply should follow")
	cmd.Flags().StringVar(&reportType, "type", "", "transcription type (chest-xray, ct-scan, mri, ultrasound)")
	cmd.Flags().StringArrayVarP(&attach, "attach", "a", nil, "file path or glob to attach (repeatable)")
	return cmd
}

// resolveAttachments expands glob patterns and opens every match for
// streaming. The returned closer releases all handles.
func resolveAttachments(patterns []string) ([]api.Attachment, func(), error) {
	var handles []*os.File
	closeAll := func() {
		for _, h := range handles {
			h.Close()
		}
	}

	var atts []api.Attachment
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("attach %s: %w", match, err)
			}
			if info.IsDir() {
				continue
			}
			h, err := os.Open(match)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("attach %s: %w", match, err)
			}
			handles = append(handles, h)

			mimeType := mime.TypeByExtension(filepath.Ext(match))
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			atts = append(atts, api.Attachment{
				Name:     filepath.Base(match),
				MIMEType: mimeType,
				Size:     info.Size(),
				Content:  h,
			})
		}
	}
	return atts, closeAll, nil
}
