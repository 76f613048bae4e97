package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ehr/rosterlink/internal/domain/casestore"
	"github.com/ehr/rosterlink/internal/domain/identity"
	"github.com/ehr/rosterlink/internal/domain/nursing"
	"github.com/ehr/rosterlink/internal/domain/roster"
	"github.com/ehr/rosterlink/internal/platform/hipaa"
	"github.com/ehr/rosterlink/internal/platform/sheet"
)

// setupEnv points every setting at a fresh data directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("SHEET_FORMAT", "csv")
	t.Setenv("KEY_FILE", "key.txt")
	t.Setenv("ENCRYPT_ON_EXIT", "false")
	t.Setenv("USERS_DB", "users.db")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("PAGE_SIZE", "20")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func assertContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Errorf("expected output to contain %q, got:\n%s", want, out)
	}
}

// combineSample generates and combines a small roster.
func combineSample(t *testing.T, dir string) {
	t.Helper()
	mustExecute(t, "generate", "--pairs", "10", "--unmatched-db", "2", "--unmatched-medicaid", "1",
		"--duplicates", "0", "--seed", "7")
	out := mustExecute(t, "combine",
		filepath.Join(dir, "database_extract.csv"),
		filepath.Join(dir, "medicaid_extract.csv"))
	assertContains(t, out, "Matched:    10")
	assertContains(t, out, "Unmatched:  3")
}

func firstIdentity(t *testing.T, dir string) roster.Identity {
	t.Helper()
	repo := roster.NewSheetRepository(dir, sheet.FormatCSV, nil)
	tbl, err := repo.Load(context.Background(), roster.PartitionMatched)
	if err != nil {
		t.Fatalf("load matched: %v", err)
	}
	return roster.IdentityOf(tbl.Rows[0])
}

func identityArgs(id roster.Identity) []string {
	return []string{"--mother-id", id.MotherID, "--first", id.ChildFirstName, "--last", id.ChildLastName, "--dob", id.ChildDOB}
}

func TestRequiresCombinedData(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "list")
	if !errors.Is(err, roster.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := execute(t, "combine", "only-one.csv"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestCaseWorkflow(t *testing.T) {
	dir := setupEnv(t)
	combineSample(t, dir)

	assertContains(t, mustExecute(t, "load"), "Loaded 10 case record(s)")
	assertContains(t, mustExecute(t, "list"), "Showing 1-10 of 10")
	assertContains(t, mustExecute(t, "list", "--limit", "4", "--offset", "4"), "(next: --offset 8)")
	assertContains(t, mustExecute(t, "unmatched"), "3 unmatched record(s)")
	assertContains(t, mustExecute(t, "duplicates"), "No duplicates records.")

	id := firstIdentity(t, dir)
	out := mustExecute(t, append([]string{"assign", "--nurse", "Nurse Joy"}, identityArgs(id)...)...)
	assertContains(t, out, "Assigned Nurse Joy")
	assertContains(t, mustExecute(t, append([]string{"find"}, identityArgs(id)...)...), "Nurse Joy")

	missing := id
	missing.ChildFirstName = "Nobody"
	_, err := execute(t, append([]string{"assign", "--nurse", "Ann"}, identityArgs(missing)...)...)
	if !errors.Is(err, casestore.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}

	assertContains(t, mustExecute(t, "batch-assign", "--nurse", "Ann", "--city", "Nowhere"), "No case records matched")
	assertContains(t, mustExecute(t, "batch-assign", "--nurse", "Ann", "--state", " oh "), "Assigned Ann to 10 case record(s)")
	if _, err := execute(t, "batch-assign", "--nurse", "Ann"); err == nil {
		t.Error("expected an empty filter to be refused without --all")
	}

	out = mustExecute(t, "report")
	assertContains(t, out, "Total children:  10")
	assertContains(t, out, "Assigned:        10 (100.0%)")
	assertContains(t, out, "Unmatched rows:  3")
	assertContains(t, mustExecute(t, "report", "--measure", "nurse-workload"), "Ann")

	out = mustExecute(t, append([]string{"visit", "log", "--at", "2024-01-02 10:00:00"}, identityArgs(id)...)...)
	assertContains(t, out, "Logged visit 1 by Ann at 2024-01-02 10:00:00")
	assertContains(t, mustExecute(t, append([]string{"visit", "list"}, identityArgs(id)...)...), "2024-01-02 10:00:00")
	assertContains(t, mustExecute(t, "visit", "stats"), "Ann")
}

func TestSearch(t *testing.T) {
	dir := setupEnv(t)
	combineSample(t, dir)
	id := firstIdentity(t, dir)

	assertContains(t, mustExecute(t, "search", strings.ToLower(id.ChildFirstName)), id.ChildFirstName)
	assertContains(t, mustExecute(t, "search", "zzzz-no-such-child"), "No records.")
}

func TestEncryptOnExit(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("ENCRYPT_ON_EXIT", "true")

	mustExecute(t, "key", "generate")
	combineSample(t, dir)

	matched := filepath.Join(dir, roster.PartitionMatched+".csv")
	assertEncrypted(t, matched, true)

	assertContains(t, mustExecute(t, "list"), "Showing 1-10 of 10")
	assertEncrypted(t, matched, true)

	mustExecute(t, "decrypt")
	assertEncrypted(t, matched, false)

	mustExecute(t, "encrypt")
	assertEncrypted(t, matched, true)
	if _, err := execute(t, "encrypt"); !errors.Is(err, hipaa.ErrAlreadyEncrypted) {
		t.Errorf("expected ErrAlreadyEncrypted, got %v", err)
	}

	assertContains(t, mustExecute(t, "key", "rotate"), "Re-sealed 1 file(s)")
	assertContains(t, mustExecute(t, "load"), "Loaded 10 case record(s)")
	assertEncrypted(t, matched, true)
}

func TestEncryptOnExitResealsDecryptedFiles(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("ENCRYPT_ON_EXIT", "true")

	combineSample(t, dir)
	id := firstIdentity(t, dir)
	mustExecute(t, append([]string{"visit", "log", "--nurse", "Nurse A"}, identityArgs(id)...)...)

	mustExecute(t, "key", "generate")
	matched := filepath.Join(dir, roster.PartitionMatched+".csv")
	unmatched := filepath.Join(dir, roster.PartitionUnmatched+".csv")
	duplicates := filepath.Join(dir, roster.PartitionDuplicates+".csv")
	visitLog := filepath.Join(dir, nursing.LogFile+".csv")
	assertEncrypted(t, matched, true)
	assertEncrypted(t, unmatched, false)

	for _, p := range []string{unmatched, duplicates, visitLog} {
		mustExecute(t, "encrypt", p)
	}

	assertContains(t, mustExecute(t, "unmatched"), "3 unmatched record(s)")
	assertEncrypted(t, unmatched, true)

	mustExecute(t, "duplicates")
	assertEncrypted(t, duplicates, true)

	assertContains(t, mustExecute(t, "visit", "list", "--nurse", "Nurse A"), "Nurse A")
	assertEncrypted(t, visitLog, true)

	assertContains(t, mustExecute(t, append([]string{"visit", "log", "--nurse", "Nurse B"}, identityArgs(id)...)...), "Logged visit 2")
	assertEncrypted(t, visitLog, true)
	assertEncrypted(t, matched, true)
}

func assertEncrypted(t *testing.T, path string, want bool) {
	t.Helper()
	got, err := hipaa.IsEncrypted(path)
	if err != nil {
		t.Fatalf("IsEncrypted: %v", err)
	}
	if got != want {
		t.Fatalf("IsEncrypted(%s) = %v, want %v", filepath.Base(path), got, want)
	}
}

func TestUserCommands(t *testing.T) {
	setupEnv(t)
	t.Setenv("ADMIN_PASSWORD", "changeme")

	assertContains(t, mustExecute(t, "user", "login", "admin", "--password", "changeme"), "Welcome, admin")
	_, err := execute(t, "user", "login", "admin", "--password", "wrong")
	if !errors.Is(err, identity.ErrInvalidPassword) {
		t.Errorf("expected ErrInvalidPassword, got %v", err)
	}

	mustExecute(t, "user", "add", "nurse.ann", "--password", "s3cret")
	_, err = execute(t, "user", "add", "nurse.ann", "--password", "other")
	if !errors.Is(err, identity.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
	out := mustExecute(t, "user", "list")
	assertContains(t, out, "admin")
	assertContains(t, out, "nurse.ann")
}

func TestPickColumns(t *testing.T) {
	available := []string{"Extra", roster.ColChildLastName, roster.ColChildFirstName, roster.ColMotherID}
	got := pickColumns(available, false)
	want := []string{roster.ColMotherID, roster.ColChildFirstName, roster.ColChildLastName}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("pickColumns = %v, want %v", got, want)
	}
	if got := pickColumns(available, true); len(got) != len(available) {
		t.Errorf("wide should keep every column, got %v", got)
	}
	if got := pickColumns([]string{"A", "B"}, false); len(got) != 2 {
		t.Errorf("expected fallback to all columns, got %v", got)
	}
}

func TestPrintRecordMasksPHI(t *testing.T) {
	rec := roster.RecordFrom(
		[]string{roster.ColChildFirstName, "Medicaid_ID"},
		[]string{"Ava", "MCD12345678"},
	)

	var buf bytes.Buffer
	a := &app{out: &buf}
	a.printRecord(rec)
	if strings.Contains(buf.String(), "MCD12345678") {
		t.Errorf("identifier printed unmasked:\n%s", buf.String())
	}
	assertContains(t, buf.String(), "Ava")

	buf.Reset()
	a.showPHI = true
	a.printRecord(rec)
	assertContains(t, buf.String(), "MCD12345678")
}
