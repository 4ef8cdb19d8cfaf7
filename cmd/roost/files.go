package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	contentType string
	output      string

	uploadCmd = &cobra.Command{
		Use:   "upload [key] [path]",
		Short: "Upload a file",
		Args:  cobra.ExactArgs(2),
		RunE:  upload,
	}

	downloadCmd = &cobra.Command{
		Use:   "download [key]",
		Short: "Download a file to stdout or --output",
		Args:  cobra.ExactArgs(1),
		RunE:  download,
	}

	deleteFileCmd = &cobra.Command{
		Use:   "delete-file [key]",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteFile,
	}
)

func registerFileCommands(root *cobra.Command) {
	uploadCmd.Flags().StringVar(&contentType, "content-type", "", "MIME type, guessed from the extension when empty")
	downloadCmd.Flags().StringVarP(&output, "output", "o", "", "write the file here instead of stdout")
	root.AddCommand(uploadCmd, downloadCmd, deleteFileCmd)
}

func upload(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	ct := contentType
	if ct == "" {
		ct = mime.TypeByExtension(filepath.Ext(args[1]))
	}
	resp, err := s.Upload(cmd.Context(), args[0], ct, data)
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}

func download(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	resp, err := s.Download(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !resp.WasSuccess() {
		return report(cmd, resp.Envelope)
	}
	if output == "" {
		_, err = cmd.OutOrStdout().Write(resp.Bytes())
		return err
	}
	return os.WriteFile(output, resp.Bytes(), 0o644)
}

func deleteFile(cmd *cobra.Command, args []string) error {
	s, err := scope()
	if err != nil {
		return err
	}
	resp, err := s.DeleteFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return report(cmd, resp.Envelope)
}
