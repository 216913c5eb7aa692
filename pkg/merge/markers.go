package merge

import "bytes"

// RenderConflict produces a whole-file conflict rendering with standard
// markers. The engine does not diff content at the line level, so the two
// sides are presented in full for a human to reconcile.
func RenderConflict(currentLabel, incomingLabel string, current, incoming []byte) []byte {
	if currentLabel == "" {
		currentLabel = "current"
	}
	if incomingLabel == "" {
		incomingLabel = "incoming"
	}

	var buf bytes.Buffer
	buf.WriteString("<<<<<<< " + currentLabel + "\n")
	buf.Write(current)
	if len(current) > 0 && current[len(current)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("=======\n")
	buf.Write(incoming)
	if len(incoming) > 0 && incoming[len(incoming)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(">>>>>>> " + incomingLabel + "\n")
	return buf.Bytes()
}

// RenderConflictForPath renders markers for one conflict by reading both
// sides' blobs from the store. Absent sides render as empty.
func (e *Engine) RenderConflictForPath(c Conflict, currentLabel, incomingLabel string) ([]byte, error) {
	var current, incoming []byte
	if c.Current != "" {
		blob, err := e.store.ReadBlob(c.Current)
		if err != nil {
			return nil, err
		}
		current = blob.Data
	}
	if c.Incoming != "" {
		blob, err := e.store.ReadBlob(c.Incoming)
		if err != nil {
			return nil, err
		}
		incoming = blob.Data
	}
	return RenderConflict(currentLabel, incomingLabel, current, incoming), nil
}
