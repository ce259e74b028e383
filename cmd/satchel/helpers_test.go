package main

import (
	"testing"

	"github.com/satchel-app/satchel/internal/envelope"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.50", 1250, false},
		{"-12.50", -1250, false},
		{"$3.99", 399, false},
		{"1,200.00", 120000, false},
		{"0", 0, false},
		{"2500", 250000, false},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseAmount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{1250, "$12.50"},
		{-1250, "-$12.50"},
		{5, "$0.05"},
		{0, "$0.00"},
	}

	for _, tt := range tests {
		if got := formatCents(tt.in); got != tt.want {
			t.Errorf("formatCents(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindTask(t *testing.T) {
	tasks := []envelope.Task{
		{ID: "tsk-aaaa11", Title: "one"},
		{ID: "tsk-aaab22", Title: "two"},
		{ID: "tsk-bbbb33", Title: "three"},
	}

	if idx, err := findTask(tasks, "tsk-bbbb33"); err != nil || idx != 2 {
		t.Errorf("exact match: idx=%d err=%v", idx, err)
	}
	if idx, err := findTask(tasks, "tsk-b"); err != nil || idx != 2 {
		t.Errorf("unique prefix: idx=%d err=%v", idx, err)
	}
	if _, err := findTask(tasks, "tsk-aaa"); err == nil {
		t.Error("ambiguous prefix should error")
	}
	if _, err := findTask(tasks, "tsk-zzz"); err == nil {
		t.Error("missing ID should error")
	}
}

func TestParseNaturalTime(t *testing.T) {
	if _, err := parseNaturalTime("tomorrow"); err != nil {
		t.Errorf("parseNaturalTime(tomorrow) failed: %v", err)
	}
	if _, err := parseNaturalTime("garble frobnitz"); err == nil {
		t.Error("expected error for unparseable phrase")
	}
}
