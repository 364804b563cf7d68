package conversation_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"atelier.dev/atelier/common/llm"
	"atelier.dev/atelier/core/config"
	"atelier.dev/atelier/internal/conversation"
)

var _ = Describe("History", func() {
	var history *conversation.History

	BeforeEach(func() {
		history = conversation.NewHistory("system prompt", "project context", config.HistoryConfig{
			MaxTranscript: 10,
			Capacity:      12,
		})
	})

	Describe("Snapshot", func() {
		It("always starts with the system prompt and the project context", func() {
			snapshot := history.Snapshot()

			Expect(snapshot).To(HaveLen(2))
			Expect(snapshot[0].Role).To(Equal(llm.RoleSystem))
			Expect(snapshot[0].Content).To(Equal("system prompt"))
			Expect(snapshot[1].Role).To(Equal(llm.RoleUser))
			Expect(snapshot[1].Content).To(Equal("project context"))
		})

		It("appends transcript turns after the prefix", func() {
			history.AppendUser("write a script")
			history.AppendAssistant("here it is")

			snapshot := history.Snapshot()

			Expect(snapshot).To(HaveLen(4))
			Expect(snapshot[2]).To(Equal(llm.Message{Role: llm.RoleUser, Content: "write a script"}))
			Expect(snapshot[3]).To(Equal(llm.Message{Role: llm.RoleAssistant, Content: "here it is"}))
		})

		It("returns a copy that does not alias the history", func() {
			history.AppendUser("original")

			snapshot := history.Snapshot()
			snapshot[2].Content = "mutated"

			Expect(history.Snapshot()[2].Content).To(Equal("original"))
		})
	})

	Describe("Refresh", func() {
		It("replaces the context message in place", func() {
			history.Refresh("new context")

			snapshot := history.Snapshot()
			Expect(snapshot[0].Content).To(Equal("system prompt"))
			Expect(snapshot[1].Content).To(Equal("new context"))
		})

		It("keeps only the most recent transcript entries", func() {
			for i := 0; i < 7; i++ {
				history.AppendUser(fmt.Sprintf("question %d", i))
				history.AppendAssistant(fmt.Sprintf("answer %d", i))
			}
			Expect(history.TranscriptLen()).To(Equal(14))

			history.Refresh("new context")

			Expect(history.TranscriptLen()).To(Equal(10))
			snapshot := history.Snapshot()
			Expect(snapshot[2].Content).To(Equal("question 2"))
			Expect(snapshot[len(snapshot)-1].Content).To(Equal("answer 6"))
		})

		It("leaves a short transcript alone", func() {
			history.AppendUser("only question")
			history.AppendAssistant("only answer")

			history.Refresh("new context")

			Expect(history.TranscriptLen()).To(Equal(2))
		})
	})

	Describe("TrimIfOverCapacity", func() {
		It("does nothing while within capacity", func() {
			for i := 0; i < 5; i++ {
				history.AppendUser("q")
				history.AppendAssistant("a")
			}

			Expect(history.TrimIfOverCapacity()).To(Equal(0))
			Expect(history.Len()).To(Equal(12))
		})

		It("drops the two oldest transcript entries once over", func() {
			for i := 0; i < 6; i++ {
				history.AppendUser(fmt.Sprintf("q%d", i))
				history.AppendAssistant(fmt.Sprintf("a%d", i))
			}
			Expect(history.Len()).To(Equal(14))

			Expect(history.TrimIfOverCapacity()).To(Equal(2))

			Expect(history.Len()).To(Equal(12))
			Expect(history.Snapshot()[2].Content).To(Equal("q1"))
		})

		It("never drops the prefix even with a tiny capacity", func() {
			small := conversation.NewHistory("sys", "ctx", config.HistoryConfig{
				MaxTranscript: 10,
				Capacity:      4,
			})
			for i := 0; i < 5; i++ {
				small.AppendUser("q")
				small.AppendAssistant("a")
			}

			Expect(small.TrimIfOverCapacity()).To(Equal(8))

			snapshot := small.Snapshot()
			Expect(snapshot).To(HaveLen(4))
			Expect(snapshot[0].Role).To(Equal(llm.RoleSystem))
			Expect(snapshot[1].Content).To(Equal("ctx"))
		})
	})
})
