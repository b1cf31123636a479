// internal/pipeline/classify/prompt.go
package classify

// classifyInstruction is the fixed instruction sent to the generation
// capability. The answer is accepted only if it is exactly one of the
// listed labels after trimming and lowercasing.
const classifyInstruction = `You are a classifier for questions about construction products and their environmental impact. Assign the question below to exactly one of these categories and answer with the category label only, nothing else.

Categories:
- theory_only: a general knowledge question about EPDs, life-cycle assessment, norms, or sustainability concepts, with no specific product involved. Example: "What is an EPD?"
- comparison_question: compares the environmental values of specific, already selected products. Example: "Which of these two insulation boards has the lower GWP?"
- hybrid_theory_comparison: needs both background theory and a comparison of the selected products. Example: "What does GWP mean, and which of my products performs better on it?"
- new_product_query: asks about a product or material that is not among the selected products. Example: "How sustainable is hempcrete?"
- indicator_explanation: asks what an environmental indicator means or how it is measured. Example: "What does ODP stand for?"
- recommendation_query: asks for a product suggestion or a recommendation. Example: "Which facade material would you recommend for low carbon impact?"
- product_followup: a follow-up question about the already selected products. Example: "And what about its values in the use stage?"
- unknown: the question fits none of the above.

Question: %s

Category:`
