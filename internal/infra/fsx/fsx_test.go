package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomic_SuccessAndNoTempLeft(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	if err := WriteFileAtomic(dir, "r.json", []byte("{}")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomic(dir, "r.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("覆盖写入不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "r.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != `{"v":2}` {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".r.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomic_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFileAtomic(dir, "a.txt", []byte("hello")); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("失败后目录应为空，实际：%v", entries)
	}
}

func TestWriteFileAtomic_TargetIsDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "a.txt"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteFileAtomic(dir, "a.txt", []byte("hello"))
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestLexists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")

	ok, err := Lexists(p)
	if err != nil || ok {
		t.Fatalf("不存在的文件：ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	ok, err = Lexists(p)
	if err != nil || !ok {
		t.Fatalf("存在的文件：ok=%v err=%v", ok, err)
	}
}

func TestRegularFile_RejectsDir(t *testing.T) {
	dir := t.TempDir()
	if _, err := RegularFile(dir); !IsPathTypeConflict(err) {
		t.Fatalf("目录应返回 PathTypeConflictError，实际：%v", err)
	}

	p := filepath.Join(dir, "a.png")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	fi, err := RegularFile(p)
	if err != nil || fi.Size() != 1 {
		t.Fatalf("普通文件：fi=%v err=%v", fi, err)
	}
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if err := os.WriteFile(b, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if !SameFile(a, a) {
		t.Fatalf("同一路径应是同一文件")
	}
	if SameFile(a, b) {
		t.Fatalf("不同文件不应判定为同一文件")
	}
	if SameFile(a, filepath.Join(dir, "missing.jpg")) {
		t.Fatalf("不存在的路径不应判定为同一文件")
	}
}
