package orchestrator

// Agent profile prompts and the templates rendered at routing and
// integration time. Routing templates demand a bare label so the decision
// can be classified without parsing prose.

const (
	rootPrompt = `You are the root assistant of a data chatbot. You answer user questions directly when you can, and you delegate questions that require database access to the query agent. Be concise and helpful.`

	queryPrompt = `You are a database query agent. Answer data questions by executing read-only SQL with the execute_query tool and summarizing the returned rows. Base every statement on the tool output; if a query fails, say what went wrong instead of guessing.`

	mathPrompt = `You are a helpful math assistant. Solve or explain the user's question step by step.`

	sciencePrompt = `You are a helpful science assistant. Explain concepts clearly and accurately.`

	generalPrompt = `You are a helpful general assistant. Answer the user's question.`
)

const (
	// promptRouting decides whether the query agent is needed.
	promptRouting = "routing_decision"
	// promptIntegration turns raw query output into a user-facing answer.
	promptIntegration = "integrate_results"
	// promptClassify picks the subject agent for a query.
	promptClassify = "subject_classification"
)

const routingTemplate = `Decide if you need query_agent for database access.
Respond ONLY: "query_agent" or "answer_directly"

User: {{.Input}}`

const integrationTemplate = `Based on the query results below, generate a natural, helpful response to answer the user's question.

Query Results:
{{.Results}}

Provide a clear, conversational answer with insights from the data.`

const classifyTemplate = `You are an orchestrator agent. Decide which sub-agent should handle the following query.

Query: "{{.Query}}"

Available sub-agents:
- math_agent: for mathematical questions, calculations, and problem-solving.
- science_agent: for scientific explanations, concepts, and inquiries.
- general: for all other types of questions.

Respond ONLY with one word: "math_agent", "science_agent", or "general".`
