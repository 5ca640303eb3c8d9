package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/khaledhikmat/vs-segmenter/service/config"
)

type localService struct {
	CfgSvc config.IService
}

// NewLocal moves stored files into the recordings folder.
func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) StoreFile(fileName string) (string, error) {
	folder := svc.CfgSvc.GetRecordingsFolder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", err
	}

	target := filepath.Join(folder, filepath.Base(fileName))
	if filepath.Clean(fileName) == filepath.Clean(target) {
		return target, nil
	}

	// Rename fails across devices; fall back to copy and remove.
	if err := os.Rename(fileName, target); err == nil {
		return target, nil
	}

	if err := copyFile(fileName, target); err != nil {
		return "", fmt.Errorf("error storing %s: %w", fileName, err)
	}

	return target, os.Remove(fileName)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
