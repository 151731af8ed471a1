package theme

import (
	"sort"
	"sync"
)

// DocumentState はMemoryDocumentの状態。
type DocumentState struct {
	Attributes map[string]string `json:"attributes"`
	Classes    []string          `json:"classes"`
}

// MemoryDocument はテーマ反映結果をメモリに保持するDocument実装。
// ルートサーフェスが現在の配色をクライアントへ返すために使う。
type MemoryDocument struct {
	mu      sync.RWMutex
	attrs   map[string]string
	classes map[string]bool
}

// NewMemoryDocument はMemoryDocumentを生成する。
func NewMemoryDocument() *MemoryDocument {
	return &MemoryDocument{
		attrs:   make(map[string]string),
		classes: make(map[string]bool),
	}
}

// SetAttribute は属性を設定する。
func (d *MemoryDocument) SetAttribute(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attrs[name] = value
}

// ToggleClass はクラスの付与・除去を行う。
func (d *MemoryDocument) ToggleClass(name string, on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		d.classes[name] = true
	} else {
		delete(d.classes, name)
	}
}

// HasClass はクラスが付与されているかを返す。
func (d *MemoryDocument) HasClass(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.classes[name]
}

// State は現在の状態のコピーを返す。
func (d *MemoryDocument) State() DocumentState {
	d.mu.RLock()
	defer d.mu.RUnlock()

	st := DocumentState{
		Attributes: make(map[string]string, len(d.attrs)),
		Classes:    make([]string, 0, len(d.classes)),
	}
	for k, v := range d.attrs {
		st.Attributes[k] = v
	}
	for c := range d.classes {
		st.Classes = append(st.Classes, c)
	}
	sort.Strings(st.Classes)
	return st
}

// compile-time interface check
var _ Document = (*MemoryDocument)(nil)
