package expertise

// technicalTerms are terms whose presence in an answer signals domain or
// engineering vocabulary.
var technicalTerms = []string{
	"api", "rest", "graphql", "webhook", "database", "sql", "nosql", "orm",
	"docker", "kubernetes", "microservice", "serverless", "cloud",
	"authentication", "oauth", "jwt", "encryption",
	"embedding", "vector", "llm", "nlp", "rag", "pipeline",
	"latency", "throughput", "cache", "queue", "shard", "replica",
}

// conceptGroups map a named concept to its indicator keywords. An answer
// referencing several distinct groups demonstrates breadth.
var conceptGroups = map[string][]string{
	"business":        {"business", "company", "enterprise", "commercial", "revenue"},
	"technical":       {"api", "database", "integration", "technical", "system"},
	"user_experience": {"user", "experience", "interface", "usability", "design"},
	"automation":      {"automate", "automatic", "workflow", "process", "task"},
	"real_time":       {"real-time", "live", "instant", "immediate", "streaming"},
	"security":        {"secure", "security", "private", "confidential", "protect"},
	"scale":           {"scale", "scalable", "performance", "volume", "growth"},
}
