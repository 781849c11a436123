package main

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kestrel/textreg/internal/features"
	"github.com/kestrel/textreg/internal/tokenize"
)

var (
	vocabCorpusPath string
	vocabConfigPath string
	vocabTop        int
)

func init() {
	vocabCmd.Flags().StringVar(&vocabCorpusPath, "corpus", "", "Corpus file (.csv, .jsonl) or PDF directory")
	vocabCmd.Flags().StringVar(&vocabConfigPath, "config", "", "Experiment YAML file")
	vocabCmd.Flags().IntVar(&vocabTop, "top", 25, "Number of terms to show")
	vocabCmd.MarkFlagRequired("corpus")
	vocabCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(vocabCmd)
}

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Build the corpus vocabulary and show the top terms",
	Long: `Tokenize the corpus with the experiment's tokenizer, build the bounded
vocabulary, and report the highest-document-frequency terms.

Example:
  textreg vocab --corpus reviews.csv --config experiment.yml --top 50`,
	Args: cobra.NoArgs,
	RunE: runVocab,
}

// VocabTerm is one vocabulary entry in the JSON payload.
type VocabTerm struct {
	Term    string `json:"term"`
	Column  int    `json:"column"`
	DocFreq int    `json:"doc_freq"`
}

// VocabResponse is the JSON payload of the vocab command.
type VocabResponse struct {
	Documents int         `json:"documents"`
	Distinct  int         `json:"distinct_tokens"`
	Size      int         `json:"vocabulary_size"`
	Terms     []VocabTerm `json:"terms"`
}

func runVocab(cmd *cobra.Command, args []string) error {
	exp := mustLoadExperiment(vocabConfigPath)
	c := mustLoadCorpus(vocabCorpusPath)

	docTokens := tokenize.TokenizeAll(exp.BuildTokenizer(), c.Texts())
	df := features.DocumentFrequencies(docTokens)

	maxTokens := exp.Pipeline.MaxTokens
	if maxTokens < 1 {
		maxTokens = len(df)
	}
	vocab, err := features.BuildVocabulary(docTokens, maxTokens)
	if err != nil {
		exitWithError(ExitDataError, "building vocabulary: %v", err)
	}

	response := VocabResponse{
		Documents: c.Len(),
		Distinct:  len(df),
		Size:      vocab.Size(),
	}
	for col, term := range vocab.Terms() {
		if col >= vocabTop {
			break
		}
		response.Terms = append(response.Terms, VocabTerm{Term: term, Column: col, DocFreq: df[term]})
	}

	if humanOutput {
		outputHuman("documents: %d  distinct tokens: %d  vocabulary: %d\n",
			response.Documents, response.Distinct, response.Size)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"column", "term", "doc freq"})
		for _, t := range response.Terms {
			table.Append([]string{
				strconv.Itoa(t.Column),
				t.Term,
				strconv.Itoa(t.DocFreq),
			})
		}
		table.Render()
		return nil
	}
	return outputJSON(response)
}
