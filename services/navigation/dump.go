package navigation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// dumpContext writes the planner context about to be searched to the dump directory, so a failed
// search can be replayed. It must be called with mu held.
func (s *Service) dumpContext() {
	if s.cfg.ContextDumpDir == "" {
		return
	}
	data, err := json.Marshal(s.pc)
	if err != nil {
		s.logger.Warnw("failed to serialize planner context", "error", err)
		return
	}
	if err := os.MkdirAll(s.cfg.ContextDumpDir, 0o750); err != nil {
		s.logger.Warnw("failed to create context dump directory", "dir", s.cfg.ContextDumpDir, "error", err)
		return
	}
	name := filepath.Join(s.cfg.ContextDumpDir, fmt.Sprintf("context_%d_%s.json", s.searchNum, uuid.NewString()))
	if err := os.WriteFile(name, data, 0o600); err != nil {
		s.logger.Warnw("failed to write planner context", "file", name, "error", err)
		return
	}
	s.logger.Debugw("wrote planner context", "file", name)
}
