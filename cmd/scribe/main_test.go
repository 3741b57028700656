package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "scribe dev") {
		t.Errorf("expected output to contain 'scribe dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestRunCmdRejectsMixedInputs(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run", "--manifest", "batch.yaml", "meeting.mp4"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error for mixed manifest and file arguments")
	}
	if !strings.Contains(err.Error(), "not both") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunCmdRequiresInputs(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error when no inputs are given")
	}
	if !strings.Contains(err.Error(), "no input files") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunCmdRejectsUnknownConversationType(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run", "--type", "sermon", "meeting.mp4"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error for an unknown conversation type")
	}
	if !strings.Contains(err.Error(), "sermon") {
		t.Errorf("expected the bad type in the error, got: %v", err)
	}
}
