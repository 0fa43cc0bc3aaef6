package printer

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/joshuapare/fwheap/heap/alloc"
)

// jsonBlock represents a block in JSON format.
type jsonBlock struct {
	alloc.BlockInfo
	State     string `json:"state"`
	Payload   string `json:"payload,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// jsonChain is the document printed for a whole chain.
type jsonChain struct {
	Blocks []jsonBlock  `json:"blocks"`
	Usage  *alloc.Usage `json:"usage,omitempty"`
}

func (p *Printer) toJSON(b alloc.BlockInfo) jsonBlock {
	jb := jsonBlock{BlockInfo: b, State: state(b)}
	if p.opts.ShowPayload && b.Size > 0 {
		data, truncated := p.payload(b)
		jb.Payload = hex.EncodeToString(data)
		jb.Truncated = truncated
	}
	return jb
}

// printChainJSON prints the chain, and optionally its usage, as one document.
func (p *Printer) printChainJSON(blocks []alloc.BlockInfo) error {
	doc := jsonChain{Blocks: make([]jsonBlock, 0, len(blocks))}
	for _, b := range blocks {
		doc.Blocks = append(doc.Blocks, p.toJSON(b))
	}
	if p.opts.PrintUsage {
		u, err := p.heap.Usage()
		if err != nil {
			return err
		}
		doc.Usage = &u
	}
	return p.writeJSON(doc)
}

func (p *Printer) printBlockJSON(b alloc.BlockInfo) error {
	return p.writeJSON(p.toJSON(b))
}

func (p *Printer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.writer, "%s\n", data)
	return err
}
