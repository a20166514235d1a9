package postgres

// SQL for the aggregation engine. The ordering platform owns orders,
// order_item, product and branch; this service owns product_analysis,
// branch_revenue and revenue.

const (
	// querySalesAllTime groups the full completed-order history by
	// (product, branch, local day). Day boundaries are computed in the
	// deployment timezone passed as $1, never as a fixed hour offset.
	querySalesAllTime = `
		SELECT
			oi.product_id,
			o.branch_id,
			(o.created_at AT TIME ZONE $1)::date AS order_date,
			SUM(oi.quantity)::bigint AS total_quantity
		FROM order_item oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'completed'
		GROUP BY oi.product_id, o.branch_id, order_date
		ORDER BY oi.product_id, o.branch_id, order_date
	`

	// querySalesForDay is the single-day variant. $2/$3 are the UTC instants
	// bounding the target local day.
	querySalesForDay = `
		SELECT
			oi.product_id,
			o.branch_id,
			(o.created_at AT TIME ZONE $1)::date AS order_date,
			SUM(oi.quantity)::bigint AS total_quantity
		FROM order_item oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'completed'
		  AND o.created_at >= $2
		  AND o.created_at < $3
		GROUP BY oi.product_id, o.branch_id, order_date
		ORDER BY oi.product_id, o.branch_id, order_date
	`

	queryGetProduct = `
		SELECT id, name, lifetime_sale_quantity
		FROM product
		WHERE id = $1
	`

	queryGetBranch = `
		SELECT id, name
		FROM branch
		WHERE id = $1
	`

	queryHasAnyAnalysis = `SELECT EXISTS (SELECT 1 FROM product_analysis)`

	queryAnalysisForDate = `
		SELECT id, product_id, branch_id, order_date, total_quantity, created_at
		FROM product_analysis
		WHERE order_date = $1
	`

	queryAnalysisProductRange = `
		SELECT id, product_id, branch_id, order_date, total_quantity, created_at
		FROM product_analysis
		WHERE product_id = $1
		  AND order_date >= $2
		  AND order_date < $3
		ORDER BY order_date ASC, branch_id ASC
	`

	querySumProductQuantity = `
		SELECT COALESCE(SUM(total_quantity), 0)::bigint
		FROM product_analysis
		WHERE product_id = $1
	`

	queryInsertAnalysis = `
		INSERT INTO product_analysis (
			id, product_id, branch_id, order_date, total_quantity, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	queryUpdateAnalysisQuantity = `
		UPDATE product_analysis
		SET total_quantity = $1
		WHERE id = $2
	`

	// queryApplyCounterDelta adds the run's net delta in place. The counter
	// is never read back and rewritten, so concurrent readers cannot feed a
	// stale value into the update.
	queryApplyCounterDelta = `
		UPDATE product
		SET lifetime_sale_quantity = lifetime_sale_quantity + $1
		WHERE id = $2
	`

	queryBranchRevenueForDay = `
		SELECT
			o.branch_id,
			SUM(o.total_amount)::text AS total_amount,
			COUNT(*)::bigint AS total_orders
		FROM orders o
		WHERE o.status = 'completed'
		  AND o.created_at >= $1
		  AND o.created_at < $2
		GROUP BY o.branch_id
		ORDER BY o.branch_id
	`

	queryDailyRevenueForDay = `
		SELECT
			COALESCE(SUM(o.total_amount), 0)::text AS total_amount,
			COUNT(*)::bigint AS total_orders
		FROM orders o
		WHERE o.status = 'completed'
		  AND o.created_at >= $1
		  AND o.created_at < $2
	`

	queryUpsertBranchRevenue = `
		INSERT INTO branch_revenue (id, branch_id, date, total_amount, total_orders, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (branch_id, date) DO UPDATE SET
			total_amount = EXCLUDED.total_amount,
			total_orders = EXCLUDED.total_orders
	`

	queryUpsertDailyRevenue = `
		INSERT INTO revenue (id, date, total_amount, total_orders, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			total_amount = EXCLUDED.total_amount,
			total_orders = EXCLUDED.total_orders
	`

	queryBranchRevenueRange = `
		SELECT id, branch_id, date, total_amount::text, total_orders, created_at
		FROM branch_revenue
		WHERE branch_id = $1
		  AND date >= $2
		  AND date < $3
		ORDER BY date ASC
	`

	queryTryAdvisoryLock     = `SELECT pg_try_advisory_lock($1)`
	queryReleaseAdvisoryLock = `SELECT pg_advisory_unlock($1)`
)
