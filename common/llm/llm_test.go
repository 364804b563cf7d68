package llm_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/openai/openai-go"

	"atelier.dev/atelier/common/llm"
)

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(llm.Config{})
		Expect(err).To(MatchError(ContainSubstring("API key")))
	})

	It("rejects unknown providers", func() {
		_, err := llm.New(llm.Config{Provider: "cohere", APIKey: "k"})
		Expect(err).To(MatchError(ContainSubstring("unsupported LLM provider")))
	})

	It("defaults to the anthropic provider", func() {
		client, err := llm.New(llm.Config{APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("claude-sonnet-4-5-20250514"))
	})

	DescribeTable("selects the provider's default model",
		func(provider, expectedModel string) {
			client, err := llm.New(llm.Config{Provider: provider, APIKey: "k"})
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Model()).To(Equal(expectedModel))
		},
		Entry("anthropic", llm.ProviderAnthropic, "claude-sonnet-4-5-20250514"),
		Entry("openai", llm.ProviderOpenAI, "gpt-4o"),
	)

	It("passes a configured model through", func() {
		client, err := llm.New(llm.Config{Provider: llm.ProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.Model()).To(Equal("gpt-4o-mini"))
	})
})

var _ = Describe("APIStatus", func() {
	It("reports no status for nil", func() {
		_, ok := llm.APIStatus(nil)
		Expect(ok).To(BeFalse())
	})

	It("reports no status for transport errors", func() {
		_, ok := llm.APIStatus(errors.New("connection refused"))
		Expect(ok).To(BeFalse())
	})

	It("extracts the status from a wrapped provider error", func() {
		apiErr := &openai.Error{StatusCode: 429}
		wrapped := fmt.Errorf("openai chat completion: %w", apiErr)

		status, ok := llm.APIStatus(wrapped)
		Expect(ok).To(BeTrue())
		Expect(status).To(Equal(429))
	})
})
