package utils

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const tempFileSuffix = ".temp"

func tempFileName(dst string) string {
	return dst + "." + uuid.NewString() + tempFileSuffix
}

// IsTempFile reports whether name is a staging file left by SafeSaveToFs,
// i.e. <name>.<uuid>.temp. A plain "x.temp" is a normal file.
func IsTempFile(name string) bool {
	base, ok := strings.CutSuffix(name, tempFileSuffix)
	if !ok {
		return false
	}
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return false
	}
	_, err := uuid.Parse(base[idx+1:])
	return err == nil
}

func SafeSaveToFs(fs afero.Fs, dst string, data []byte) error {
	// 先写到同目录下的临时文件, 再通过rename覆盖目标文件, 避免读到写了一半的内容
	dir := path.Dir(dst)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory failed: %w", err)
	}
	dstTmp := tempFileName(dst)
	f, err := fs.OpenFile(dstTmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create tmp file failed: %w", err)
	}
	defer fs.Remove(dstTmp) //nolint:errcheck
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write tmp file failed: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close tmp file failed: %w", err)
	}
	// 替换目标文件
	if err := fs.Rename(dstTmp, dst); err != nil {
		return fmt.Errorf("rename tmp file to target failed: %w", err)
	}
	return nil
}

// PruneEmptyDirs removes dir and its empty parents, stops at stop or the first non empty one.
func PruneEmptyDirs(fs afero.Fs, dir string, stop string) error {
	for dir != stop && dir != "." && dir != "/" && len(dir) > 0 {
		ents, err := afero.ReadDir(fs, dir)
		if err != nil {
			if os.IsNotExist(err) {
				dir = path.Dir(dir)
				continue
			}
			return err
		}
		if len(ents) > 0 {
			return nil
		}
		if err := fs.Remove(dir); err != nil {
			return err
		}
		dir = path.Dir(dir)
	}
	return nil
}
