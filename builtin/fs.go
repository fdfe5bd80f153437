package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bpowers/toolwire/schema"
	"github.com/bpowers/toolwire/tool"
)

// contextKey is a private type for context keys
type contextKey struct{}

// WithFS adds an fs.FS to the context for downstream tool calls.
func WithFS(ctx context.Context, f fs.FS) context.Context {
	return context.WithValue(ctx, contextKey{}, f)
}

// GetFS retrieves the filesystem from the context.
func GetFS(ctx context.Context) (fs.FS, error) {
	fsys, ok := ctx.Value(contextKey{}).(fs.FS)
	if !ok {
		return nil, fmt.Errorf("no filesystem found in context")
	}
	return fsys, nil
}

// cleanPath turns a caller-supplied path into a valid fs.FS name. Absolute
// paths are taken relative to the served root.
func cleanPath(p string) (string, error) {
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("invalid path %q", p)
	}
	return name, nil
}

// FileInfo contains information about a file
type FileInfo struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size"`
}

type listFilesResult struct {
	Path  string     `json:"path"`
	Files []FileInfo `json:"files"`
}

func listFilesTool() tool.Tool {
	return tool.New(tool.Definition{
		Name:        "list_files",
		Description: "List the entries of a directory in the served filesystem",
		InputSchema: schema.Obj(map[string]*schema.JSON{
			"path": {Type: schema.String, Description: "Directory to list, relative to the served root", Default: "."},
		}),
		Defaults: map[string]string{"path": "."},
	}, listFiles)
}

func listFiles(ctx context.Context, args tool.Args) ([]tool.Content, error) {
	fileSystem, err := GetFS(ctx)
	if err != nil {
		return nil, err
	}

	dirPath, err := cleanPath(args.Get("path"))
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fileSystem, dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dirPath, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:  entry.Name(),
			IsDir: entry.IsDir(),
			Size:  info.Size(),
		})
	}

	out, err := json.Marshal(listFilesResult{Path: dirPath, Files: files})
	if err != nil {
		return nil, err
	}
	return tool.Text(string(out)), nil
}

func readFileTool() tool.Tool {
	return tool.New(tool.Definition{
		Name:        "read_file",
		Description: "Read a text file from the served filesystem",
		InputSchema: schema.Obj(map[string]*schema.JSON{
			"path": schema.StringProp("File to read, relative to the served root"),
		}, "path"),
		Policy: tool.FailClosed,
	}, readFile)
}

func readFile(ctx context.Context, args tool.Args) ([]tool.Content, error) {
	fileSystem, err := GetFS(ctx)
	if err != nil {
		return nil, err
	}

	fileName, err := cleanPath(args.Get("path"))
	if err != nil {
		return nil, err
	}

	file, err := fileSystem.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", fileName, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileName, err)
	}

	return tool.Text(string(content)), nil
}

func writeFileTool() tool.Tool {
	return tool.New(tool.Definition{
		Name:        "write_file",
		Description: "Create or overwrite a file in the served filesystem",
		InputSchema: schema.Obj(map[string]*schema.JSON{
			"path":    schema.StringProp("File to write, relative to the served root"),
			"content": schema.StringProp("Text to write"),
		}, "path", "content"),
		Policy: tool.FailClosed,
	}, writeFile)
}

func writeFile(ctx context.Context, args tool.Args) ([]tool.Content, error) {
	fileSystem, err := GetFS(ctx)
	if err != nil {
		return nil, err
	}

	fileName, err := cleanPath(args.Get("path"))
	if err != nil {
		return nil, err
	}
	if fileName == "." {
		return nil, fmt.Errorf("invalid path %q", args.Get("path"))
	}

	dir := path.Dir(fileName)
	if dir != "." {
		type mkdirAller interface {
			MkdirAll(path string, perm os.FileMode) error
		}
		if f, ok := fileSystem.(mkdirAller); ok {
			if err := f.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	// github.com/psanford/memfs.FS and RootFS implement this
	type writer interface {
		WriteFile(path string, data []byte, perm os.FileMode) error
	}
	f, ok := fileSystem.(writer)
	if !ok {
		return nil, fmt.Errorf("read-only filesystem")
	}

	content := args.Get("content")
	if err := f.WriteFile(fileName, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file %s: %w", fileName, err)
	}

	return tool.Text(fmt.Sprintf("Wrote %d bytes to %s", len(content), fileName)), nil
}
