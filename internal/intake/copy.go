package intake

// User-facing copy. Kept in one place so the transition logic stays free of
// strings and the wording can be tuned without touching control flow.

const (
	copyWelcome = "Hi! I'm here to help you scope an AI agent project. I'll ask a few questions " +
		"to understand what you're trying to do, then generate a detailed assessment.\n\n" +
		"You don't need to be precise. I'll make reasonable assumptions and show them " +
		"to you before anything runs."

	copyIntent = "What problem are you trying to solve with an AI agent?\n\n" +
		"_Example: \"I want to predict when our factory machines will need maintenance " +
		"before they break down.\"_"

	copyIntentFollowup = "That's helpful. Can you say a bit more about the problem? " +
		"If this worked perfectly, what would be different?"

	copyOpportunity = "What would success look like? Are you mainly trying to:\n" +
		"- **Grow revenue** (sell more, reach more customers)\n" +
		"- **Save money or time** (efficiency, automation)\n" +
		"- **Reduce risk** (errors, compliance, safety)\n" +
		"- **Transform operations** (fundamentally change how you work)"

	copyLocation = "Where would this operate? A country or region is enough. " +
		"It matters for data rules and regulations."

	copyOrgSize = "Roughly how big is your organization? A head count or a word like " +
		"\"startup\" or \"enterprise\" works."

	copyTimeline = "When do you want this running? \"Next quarter\", \"this month\", " +
		"\"sometime next year\" are all fine answers."

	copyStakeholders = "Who would use this day-to-day, and who needs to sign off on it?"

	copyIntegration = "Will this agent need to connect to any existing systems?\n\n" +
		"Things like: CRM, calendar, payment processor, inventory system, databases, ERP."

	copyRisk = "If the agent made a mistake, what's the worst that could happen?"

	copyCheckpoint = "Let me summarize what I've understood. Please correct anything that's off. " +
		"This is what I'll base the research on:"

	copyHardStop = "We've covered a lot of ground. I have enough to work with. Ready to proceed?"

	copyFastPathOffer = "By the way, if you'd rather not answer more questions, I can proceed now " +
		"with reasonable assumptions and show you everything before running the analysis."

	copyConfirmType = "Based on everything so far, here's the agent type I'd recommend. " +
		"Confirm it and I'll run the full assessment, or tell me what to change."

	copyRunStage0 = "Running the viability research now. This takes a moment."

	copyRunStages = "Running the full assessment: requirements, agent design, and capability mapping."

	copyExports = "All done. Your assessment documents are ready to export."

	copyDidNotCatch = "I didn't catch that. Could you say a bit more?"

	copyWhichFix = "Which one should I fix? Tell me the field and the right value, " +
		"for example: \"industry is healthcare\"."
)
