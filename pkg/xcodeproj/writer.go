package xcodeproj

import (
	"fmt"
	"os"
	"path/filepath"
)

const workspaceContents = `<?xml version="1.0" encoding="UTF-8"?>
<Workspace
   version = "1.0">
   <FileRef
      location = "self:">
   </FileRef>
</Workspace>
`

// WriteProject serializes the project and writes the .xcodeproj bundle
// under outputDir, returning the bundle path. The pbxproj file is written
// via a temp file and rename so a crash never leaves a half-written
// project. Directory creation and serialization failures are fatal to
// generation and surface as errors here.
func WriteProject(p *Project, outputDir string) (string, error) {
	data, err := Serialize(p)
	if err != nil {
		return "", err
	}

	bundlePath := filepath.Join(outputDir, p.Name+".xcodeproj")
	if err := os.MkdirAll(bundlePath, 0o755); err != nil {
		return "", fmt.Errorf("creating project bundle %s: %w", bundlePath, err)
	}

	workspaceDir := filepath.Join(bundlePath, "project.xcworkspace")
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace dir %s: %w", workspaceDir, err)
	}
	workspaceFile := filepath.Join(workspaceDir, "contents.xcworkspacedata")
	if _, err := os.Stat(workspaceFile); os.IsNotExist(err) {
		if err := os.WriteFile(workspaceFile, []byte(workspaceContents), 0o644); err != nil {
			return "", fmt.Errorf("writing workspace contents: %w", err)
		}
	}

	pbxprojPath := filepath.Join(bundlePath, "project.pbxproj")
	tmp, err := os.CreateTemp(bundlePath, ".project-*.pbxproj")
	if err != nil {
		return "", fmt.Errorf("creating temp pbxproj: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing pbxproj: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing pbxproj: %w", err)
	}
	if err := os.Rename(tmpName, pbxprojPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("replacing pbxproj: %w", err)
	}
	return bundlePath, nil
}
