package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// onnxMaxSeqLen caps token length per input; BGE-small-en-v1.5 supports
	// up to 512 tokens, but halving it to 256 shrinks the O(seqLen²)
	// attention matrix substantially and covers typical chunk sizes.
	onnxMaxSeqLen = 256

	// onnxEmbeddingDim is the output width of BGE-small-en-v1.5.
	onnxEmbeddingDim = 384

	// bgeQueryPrefix is prepended to queries only, per the BGE-small-en-v1.5
	// asymmetric-retrieval recommendation.
	bgeQueryPrefix = "Represent this sentence for searching relevant passages: "
)

// ONNXProvider embeds text with a local BGE-small-en-v1.5 ONNX model. The
// underlying session is not safe for concurrent runs, so Embed serializes
// calls on an internal mutex; Get shares one process-wide instance.
type ONNXProvider struct {
	session   *ort.DynamicAdvancedSession
	tokenizer *tokenizers.Tokenizer
	mu        sync.Mutex
}

// NewONNXProvider loads model.onnx and tokenizer.json from modelDir. If
// ortLibPath is non-empty it is used as the ONNX Runtime shared library
// path; pass "" to use whatever the system resolves by default.
func NewONNXProvider(modelDir, ortLibPath string, numThreads int) (*ONNXProvider, error) {
	modelPath := filepath.Join(modelDir, "model.onnx")
	tokenPath := filepath.Join(modelDir, "tokenizer.json")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("embedding model not found at %s: %w", modelPath, err)
	}
	if _, err := os.Stat(tokenPath); err != nil {
		return nil, fmt.Errorf("tokenizer not found at %s: %w", tokenPath, err)
	}

	if ortLibPath != "" {
		ort.SetSharedLibraryPath(ortLibPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
		if numThreads > 4 {
			numThreads = 4
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()

	if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
		return nil, fmt.Errorf("set intra-op threads: %w", err)
	}
	// Keep inter-op parallelism at 1; this graph has a single linear path
	// so extra inter-op threads only add scheduling overhead.
	if err := opts.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("set inter-op threads: %w", err)
	}

	inputNames := []string{"input_ids", "attention_mask", "token_type_ids"}
	outputNames := []string{"last_hidden_state"}

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	tk, err := tokenizers.FromFile(tokenPath)
	if err != nil {
		session.Destroy()
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	return &ONNXProvider{session: session, tokenizer: tk}, nil
}

func (p *ONNXProvider) Dimensions() int { return onnxEmbeddingDim }

func (p *ONNXProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.Destroy()
	}
	if p.tokenizer != nil {
		p.tokenizer.Close()
	}
	return nil
}

// Embed runs one ONNX inference call across texts, prefixing each with the
// BGE query instruction when mode is ModeQuery. The underlying session is
// not safe for concurrent Run calls, so this method serializes on an
// internal mutex.
func (p *ONNXProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := texts
	if mode == ModeQuery {
		prepared = make([]string, len(texts))
		for i, t := range texts {
			prepared[i] = bgeQueryPrefix + t
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.runBatch(prepared)
}

type onnxEncoded struct {
	ids  []int64
	mask []int64
}

func (p *ONNXProvider) runBatch(texts []string) ([][]float32, error) {
	batchSize := len(texts)

	all := make([]onnxEncoded, batchSize)
	maxLen := 0
	for i, text := range texts {
		enc := p.tokenizer.EncodeWithOptions(text, true, tokenizers.WithReturnAttentionMask())
		ids := enc.IDs
		if len(ids) > onnxMaxSeqLen {
			ids = ids[:onnxMaxSeqLen]
		}
		ids64 := make([]int64, len(ids))
		mask64 := make([]int64, len(ids))
		for j, v := range ids {
			ids64[j] = int64(v)
			mask64[j] = 1
		}
		if len(enc.AttentionMask) >= len(ids) {
			for j := range ids64 {
				mask64[j] = int64(enc.AttentionMask[j])
			}
		}
		all[i] = onnxEncoded{ids: ids64, mask: mask64}
		if len(ids64) > maxLen {
			maxLen = len(ids64)
		}
	}
	if maxLen == 0 {
		return nil, fmt.Errorf("embedding: all inputs tokenized to zero length")
	}

	flatIDs := make([]int64, batchSize*maxLen)
	flatMask := make([]int64, batchSize*maxLen)
	flatType := make([]int64, batchSize*maxLen)
	for i, enc := range all {
		copy(flatIDs[i*maxLen:], enc.ids)
		copy(flatMask[i*maxLen:], enc.mask)
	}
	shape := ort.NewShape(int64(batchSize), int64(maxLen))

	inputIDs, err := ort.NewTensor(shape, flatIDs)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer inputIDs.Destroy()

	attnMask, err := ort.NewTensor(shape, flatMask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer attnMask.Destroy()

	typeIDs, err := ort.NewTensor(shape, flatType)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typeIDs.Destroy()

	inputs := []ort.Value{inputIDs, attnMask, typeIDs}
	outputs := []ort.Value{nil}
	if err := p.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	hiddenTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("embedding: unexpected onnx output type")
	}
	hidden := hiddenTensor.GetData()
	seqLen := int(hiddenTensor.GetShape()[1])

	embeddings := make([][]float32, batchSize)
	for i := 0; i < batchSize; i++ {
		vec := make([]float32, onnxEmbeddingDim)
		// BGE-small uses the [CLS] token (position 0) as the sentence vector.
		base := i * seqLen * onnxEmbeddingDim
		copy(vec, hidden[base:base+onnxEmbeddingDim])
		embeddings[i] = l2Normalize(vec)
	}

	return embeddings, nil
}
